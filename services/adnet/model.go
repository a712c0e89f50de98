package adnet

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Provider identifies one of the mock ad networks.
type Provider string

const (
	ProviderAdMob Provider = "ADMOB"
	ProviderUnity Provider = "UNITY"
)

// Providers returns every known provider. Consumers iterate this slice so a
// new provider forces review of each call site.
func Providers() []Provider {
	return []Provider{ProviderAdMob, ProviderUnity}
}

func (p Provider) String() string {
	switch p {
	case ProviderAdMob, ProviderUnity:
		return string(p)
	default:
		return ""
	}
}

// State is the per-provider lifecycle state owned by the Orchestrator.
type State string

const (
	StateDisabled     State = "DISABLED"
	StateInitializing State = "INITIALIZING"
	StateReady        State = "READY"
	StateFailed       State = "FAILED"
)

// NetworkConfig is the administrator-owned configuration for one provider.
type NetworkConfig struct {
	Enabled             bool   `json:"enabled" mapstructure:"enabled"`
	BannersEnabled      bool   `json:"banners_enabled" mapstructure:"banners_enabled"`
	InterstitialEnabled bool   `json:"interstitial_enabled" mapstructure:"interstitial_enabled"`
	RewardedEnabled     bool   `json:"rewarded_enabled" mapstructure:"rewarded_enabled"`
	AppID               string `json:"app_id" mapstructure:"app_id"`
	BannerID            string `json:"banner_id" mapstructure:"banner_id"`
	InterstitialID      string `json:"interstitial_id" mapstructure:"interstitial_id"`
	RewardedID          string `json:"rewarded_id" mapstructure:"rewarded_id"`
}

type PrivacyConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	PolicyURL string `json:"policy_url" mapstructure:"policy_url"`
}

// InitConfig is the slice of the application settings the Orchestrator acts
// on. Two configs with equal Signature are semantically identical.
type InitConfig struct {
	AdMob   NetworkConfig `json:"admob"`
	Unity   NetworkConfig `json:"unity"`
	Privacy PrivacyConfig `json:"privacy"`
}

func (c InitConfig) Network(p Provider) NetworkConfig {
	switch p {
	case ProviderAdMob:
		return c.AdMob
	case ProviderUnity:
		return c.Unity
	default:
		return NetworkConfig{}
	}
}

// Signature hashes the canonical JSON encoding of the config. It suppresses
// redundant re-initialization when settings are re-saved unchanged.
func (c InitConfig) Signature() string {
	raw, _ := json.Marshal(c)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Snapshot is a point-in-time view of provider readiness.
type Snapshot struct {
	States   map[Provider]State `json:"states"`
	InFlight bool               `json:"in_flight"`
}

func (s Snapshot) Ready(p Provider) bool {
	return s.States[p] == StateReady
}

func (s Snapshot) AnyReady() bool {
	for _, p := range Providers() {
		if s.Ready(p) {
			return true
		}
	}
	return false
}

// Initializing reports whether any provider is still settling.
func (s Snapshot) Initializing() bool {
	if s.InFlight {
		return true
	}
	for _, p := range Providers() {
		if s.States[p] == StateInitializing {
			return true
		}
	}
	return false
}
