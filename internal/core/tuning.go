package core

const (
	ArenaWidth  = 800.0
	ArenaHeight = 600.0

	MaxHealth   = 5
	PlayerSpeed = 200.0 // units per second

	PlayerSpawnX = ArenaWidth / 2
	PlayerSpawnY = ArenaHeight / 2
	AISpawnX     = 200.0
	AISpawnY     = 150.0

	AISpeed          = 60.0
	AIApproachDist   = 220.0
	AIRetreatDist    = 140.0
	AICooldownMin    = 0.8
	AICooldownSpread = 1.0
	AIRespawnInset   = 100.0

	ProjectileSpeed     = 480.0
	ProjectileTTL       = 3.0
	ProjectileMargin    = 20.0
	ProjectileHitRadius = 14.0
	ProjectileLaunch    = 6.0 // distance ahead of the hand anchor

	// Hand anchor geometry, relative to the body centre.
	HandReach     = 8.0
	HandExtension = 18.0
	HandOffsetX   = 9.0
	HandOffsetY   = -6.0

	ThrowAnimDuration = 0.25 // seconds
)
