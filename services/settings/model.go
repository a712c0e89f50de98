package settings

import "earneasy-rewardplane/services/adnet"

// AppSettings is the complete administrator configuration. Every save is
// treated as a potential change to ad-network gating.
type AppSettings struct {
	MinWithdraw     int64               `json:"min_withdraw"`
	CurrencySymbol  string              `json:"currency_symbol"`
	MaintenanceMode bool                `json:"maintenance_mode"`
	AdMob           adnet.NetworkConfig `json:"admob"`
	UnityAds        adnet.NetworkConfig `json:"unity_ads"`
	Privacy         adnet.PrivacyConfig `json:"privacy"`
}

// InitConfig projects the settings onto the slice the orchestrator consumes.
func (s AppSettings) InitConfig() adnet.InitConfig {
	return adnet.InitConfig{
		AdMob:   s.AdMob,
		Unity:   s.UnityAds,
		Privacy: s.Privacy,
	}
}

// Defaults mirrors the seed configuration the product ships with.
func Defaults() AppSettings {
	return AppSettings{
		MinWithdraw:     1000,
		CurrencySymbol:  "$",
		MaintenanceMode: false,
		Privacy: adnet.PrivacyConfig{
			Enabled:   true,
			PolicyURL: "https://earneasy.example.com/privacy-policy",
		},
		AdMob: adnet.NetworkConfig{
			Enabled:             true,
			BannersEnabled:      true,
			InterstitialEnabled: true,
			RewardedEnabled:     true,
			AppID:               "ca-app-pub-4307115135436522/6053881801",
			BannerID:            "ca-app-pub-4307115135436522/7581859541",
			InterstitialID:      "ca-app-pub-4307115135436522/4338966142",
			RewardedID:          "ca-app-pub-4307115135436522/6053881801",
		},
		UnityAds: adnet.NetworkConfig{
			Enabled:             true,
			BannersEnabled:      true,
			InterstitialEnabled: true,
			RewardedEnabled:     true,
			AppID:               "6000699",
			BannerID:            "banner",
			InterstitialID:      "video",
			RewardedID:          "rewardedVideo",
		},
	}
}
