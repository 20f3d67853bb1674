package chat

// Sanitize repairs a candidate message sequence so it is safe to submit to a
// completion backend. Backends hard-reject a tool message that does not
// answer an outstanding assistant tool call, which can happen when a caller
// replays stored history whose tool call ids belong to an earlier run.
//
// The pass walks the sequence once, tracking how many tool results the most
// recent assistant turn still expects. An assistant message announcing N tool
// calls licenses the next N contiguous tool messages; any tool message beyond
// that budget, or not preceded by an announcing assistant turn, is dropped.
// Any other role resets the budget.
//
// This is a best-effort single-pass invariant repair, not a causal-graph
// validator: it does not verify that a kept tool message's tool_call_id
// matches one of the announced ids, only that some preceding assistant turn
// announced enough calls. The returned slice is freshly allocated; the input
// is never mutated.
func Sanitize(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	pending := 0
	for _, m := range messages {
		switch {
		case m.HasToolCalls():
			pending = len(m.ToolCalls)
			out = append(out, m)
		case m.Role == RoleTool:
			if pending > 0 {
				pending--
				out = append(out, m)
			}
			// Orphaned tool message: defensive discard.
		default:
			pending = 0
			out = append(out, m)
		}
	}
	return out
}
