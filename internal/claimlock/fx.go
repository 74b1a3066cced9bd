package claimlock

import "go.uber.org/fx"

var Module = fx.Module("claim.lock",
	fx.Provide(NewRedisClient),
	fx.Provide(NewRedisLocker),
	fx.Provide(New),
)
