package rtc

import (
	"fmt"

	"github.com/dkeye/fieldcast/internal/config"
	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// FallbackSTUN is always offered so peers can gather at least srflx candidates.
const FallbackSTUN = "stun:stun.l.google.com:19302"

func DefaultICEServers() []webrtc.ICEServer {
	return []webrtc.ICEServer{
		{
			URLs: []string{FallbackSTUN},
		},
	}
}

// ICEServers converts configured servers, skipping malformed URLs. The
// fallback STUN server is appended unless already present.
func ICEServers(cfg config.ICEConfig) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(cfg.Servers)+1)
	hasFallback := false
	for _, s := range cfg.Servers {
		urls := make([]string, 0, len(s.URLs))
		for _, raw := range s.URLs {
			if err := validateURL(raw); err != nil {
				log.Warn().Err(err).Str("module", "rtc").Str("url", raw).Msg("skipping ice server url")
				continue
			}
			if raw == FallbackSTUN {
				hasFallback = true
			}
			urls = append(urls, raw)
		}
		if len(urls) == 0 {
			continue
		}
		srv := webrtc.ICEServer{URLs: urls, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, srv)
	}
	if !hasFallback {
		out = append(out, DefaultICEServers()...)
	}
	return out
}

func validateURL(raw string) error {
	u, err := stun.ParseURI(raw)
	if err != nil {
		return fmt.Errorf("parse ice url: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("ice url %q has no host", raw)
	}
	return nil
}
