package ticket

import (
	"github.com/foxseedlab/pwbot/internal/clock"
	"github.com/foxseedlab/pwbot/internal/config"
	"github.com/foxseedlab/pwbot/internal/dedupe"
	"github.com/foxseedlab/pwbot/internal/discord"
	"github.com/foxseedlab/pwbot/internal/repository"
	"github.com/foxseedlab/pwbot/internal/settings"
	"github.com/foxseedlab/pwbot/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		dc := do.MustInvoke[discord.Client](i)
		st := do.MustInvoke[settings.Store](i)
		wh := do.MustInvoke[webhook.Sender](i)
		guard := do.MustInvoke[dedupe.Guard](i)
		c := do.MustInvoke[clock.Clock](i)
		return NewManager(cfg, repo, dc, st, wh, guard, c), nil
	})
}
