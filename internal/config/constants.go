package config

import "time"

const (
	// Reward maturation delay
	RewardDelay = 3 * 24 * time.Hour

	// SubGram
	SubgramReward   = 2
	SubgramCacheTTL = 12 * time.Second
	SubgramCacheMax = 1024

	// Provider HTTP behavior
	ProviderTimeout    = 15 * time.Second
	RateLimitBackoff   = 3 * time.Second
	TimeoutRetryDelay  = 2 * time.Second
	FlyerTaskListLimit = 5

	// Local tasks
	LocalTaskReward = 2
	PerPersonCost   = 3
	MinTargetSubs   = 10
	MaxTargetSubs   = 10000

	// Fraud penalties
	FraudWindow         = time.Hour
	FraudBalancePenalty = 10
	FraudCounterPenalty = 5

	// Referral program
	ReferralActivationTasks = 3
	ReferralActivationBonus = 3
	ReferralCommissionRate  = 0.1
)
