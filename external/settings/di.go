package settings

import (
	"github.com/foxseedlab/pwbot/internal/config"
	"github.com/foxseedlab/pwbot/internal/settings"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (settings.Store, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewYAMLStore(c.SettingsPath)
	})
}
