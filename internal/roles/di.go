package roles

import (
	"github.com/foxseedlab/pwbot/internal/discord"
	"github.com/foxseedlab/pwbot/internal/settings"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Binder, error) {
		dc := do.MustInvoke[discord.Client](i)
		st := do.MustInvoke[settings.Store](i)
		return NewBinder(dc, st), nil
	})
}
