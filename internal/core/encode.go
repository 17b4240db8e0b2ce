package core

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Encode marshals v once so the same bytes can be fanned out.
func Encode(v any) (Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core").Msg("encode frame")
		return nil, false
	}
	return b, true
}
