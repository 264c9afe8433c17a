package dedupe

import (
	"github.com/foxseedlab/pwbot/internal/clock"
	"github.com/foxseedlab/pwbot/internal/config"
	"github.com/foxseedlab/pwbot/internal/dedupe"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (dedupe.Guard, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.RedisAddr == "" {
			return dedupe.NewMemoryGuard(do.MustInvoke[clock.Clock](i)), nil
		}
		return NewRedisGuard(newRedisClient(c.RedisAddr, c.RedisPassword, c.RedisDB)), nil
	})
}
