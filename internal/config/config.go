package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Integrity holds the tunable thresholds of the completion integrity
// pipeline. Defaults mirror production values; a YAML file pointed at by
// PYLEARN_CONFIG overrides individual fields.
type Integrity struct {
	MinDwellSeconds          int `yaml:"min_dwell_seconds"`
	DwellPerEstimatedMinute  int `yaml:"dwell_per_estimated_minute"`
	MinEngagedHeartbeats     int `yaml:"min_engaged_heartbeats"`
	HeartbeatDebounceSeconds int `yaml:"heartbeat_debounce_seconds"`
	QuizPassThreshold        int `yaml:"quiz_pass_threshold"`
	FullCompletionXP         int `yaml:"full_completion_xp"`
	PartialCompletionXP      int `yaml:"partial_completion_xp"`
}

type Economy struct {
	LessonCompletionCredits   int `yaml:"lesson_completion_credits"`
	CreditConversionThreshold int `yaml:"credit_conversion_threshold"`
	ReferralRewardXP          int `yaml:"referral_reward_xp"`
	ReferralRewardCredits     int `yaml:"referral_reward_credits"`
	PremiumGrantDays          int `yaml:"premium_grant_days"`
}

type Config struct {
	Integrity Integrity `yaml:"integrity"`
	Economy   Economy   `yaml:"economy"`
}

func Default() Config {
	return Config{
		Integrity: Integrity{
			MinDwellSeconds:          45,
			DwellPerEstimatedMinute:  20,
			MinEngagedHeartbeats:     2,
			HeartbeatDebounceSeconds: 10,
			QuizPassThreshold:        70,
			FullCompletionXP:         60,
			PartialCompletionXP:      20,
		},
		Economy: Economy{
			LessonCompletionCredits:   3,
			CreditConversionThreshold: 100,
			ReferralRewardXP:          120,
			ReferralRewardCredits:     1,
			PremiumGrantDays:          7,
		},
	}
}

// Load returns defaults overlaid with the YAML file at path. An empty path
// returns pure defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
