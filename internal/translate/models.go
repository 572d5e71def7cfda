package translate

// ModelInfo describes a known chat model usable for translation.
type ModelInfo struct {
	ID          string
	Description string
	Vision      bool
}

// KnownModels lists models that have been verified to work with the
// translation prompt. Other OpenAI-compatible models can still be
// selected by ID; this list only drives --list-models output.
var KnownModels = []ModelInfo{
	{ID: "gpt-4o", Description: "default, best layout-aware translation quality", Vision: true},
	{ID: "gpt-4o-mini", Description: "faster and cheaper, good for drafts", Vision: true},
	{ID: "gpt-4-turbo", Description: "previous generation, text only workloads", Vision: true},
	{ID: "gpt-3.5-turbo", Description: "legacy, text only, lowest cost", Vision: false},
}

// FindModel returns the ModelInfo for an ID if it is a known model.
func FindModel(id string) (ModelInfo, bool) {
	for _, m := range KnownModels {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// SupportsVision reports whether a model can accept page images.
// Unknown models are assumed text-only.
func SupportsVision(id string) bool {
	m, ok := FindModel(id)
	return ok && m.Vision
}
