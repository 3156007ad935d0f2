package core

// spliceResult carries what an extend or prepend displaced, keyed like the
// update that produced it.
type spliceResult struct {
	removed Update
	lengths map[string][]int
}

// splice applies a validated plan. Extend keeps the newest points when the
// window overflows; prepend keeps the leading ones.
func splice(g *Graph, plan splicePlan, prepend bool) spliceResult {
	res := spliceResult{
		removed: make(Update),
		lengths: make(map[string][]int),
	}
	for _, t := range plan.targets {
		merged := make([]any, 0, len(t.old)+len(t.insert))
		inserted := cloneValue(t.insert).([]any)
		if prepend {
			merged = append(append(merged, inserted...), t.old...)
		} else {
			merged = append(append(merged, t.old...), inserted...)
		}

		dropped := []any{}
		if t.limit >= 0 && t.limit < len(merged) {
			if prepend {
				dropped = append(dropped, merged[t.limit:]...)
				merged = merged[:t.limit:t.limit]
			} else {
				cut := len(merged) - t.limit
				dropped = append(dropped, merged[:cut]...)
				merged = merged[cut:]
			}
		}

		storePath(g.Data[t.trace], t.path, merged)
		res.removed[t.path] = append(res.removed[t.path], dropped)
		res.lengths[t.path] = append(res.lengths[t.path], len(t.old))
	}
	return res
}
