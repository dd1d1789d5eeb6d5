package updaterequest

const autoApproveKey = "autoApprove"

func eventMeta(p Payload) map[string]any {
	switch v := p.(type) {
	case *CreateAOAndLocationAndEvent:
		return v.EventMeta
	case *CreateEvent:
		return v.EventMeta
	case *EditEvent:
		return v.EventMeta
	default:
		return nil
	}
}

// AutoApproveHint reports whether the submitter asked to skip review.
func AutoApproveHint(p Payload) bool {
	hint, ok := eventMeta(p)[autoApproveKey].(bool)
	return ok && hint
}

// StripAutoApproveHint removes the hint so it is never persisted.
func StripAutoApproveHint(p Payload) {
	meta := eventMeta(p)
	if meta == nil {
		return
	}
	delete(meta, autoApproveKey)
}
