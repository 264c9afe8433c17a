package janitor

import (
	"github.com/foxseedlab/pwbot/internal/clock"
	"github.com/foxseedlab/pwbot/internal/config"
	"github.com/foxseedlab/pwbot/internal/discord"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Janitor, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		c := do.MustInvoke[clock.Clock](i)
		return New(cfg.LFGChannelID, cfg.JanitorInterval, dc, c), nil
	})
}
