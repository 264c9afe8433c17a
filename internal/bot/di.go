package bot

import (
	"github.com/foxseedlab/pwbot/internal/config"
	"github.com/foxseedlab/pwbot/internal/dedupe"
	"github.com/foxseedlab/pwbot/internal/discord"
	"github.com/foxseedlab/pwbot/internal/lobby"
	"github.com/foxseedlab/pwbot/internal/roles"
	"github.com/foxseedlab/pwbot/internal/settings"
	"github.com/foxseedlab/pwbot/internal/ticket"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Router, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		tickets := do.MustInvoke[*ticket.Manager](i)
		lobbies := do.MustInvoke[*lobby.Manager](i)
		binder := do.MustInvoke[*roles.Binder](i)
		st := do.MustInvoke[settings.Store](i)
		guard := do.MustInvoke[dedupe.Guard](i)
		return NewRouter(cfg, dc, tickets, lobbies, binder, st, guard), nil
	})
}
