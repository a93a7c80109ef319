package breadcrumbs

import (
	"fmt"
	"strings"

	"github.com/lognitor/go-tracer/browser"
	"github.com/lognitor/go-tracer/intercept"
)

func (r *Recorder) installConsole(page *browser.Page) {
	if page.Console == nil {
		return
	}

	for _, level := range browser.ConsoleLevels {
		slot, ok := page.Console.Methods[level]
		if !ok {
			continue
		}

		crumbLevel := level
		if level == "warn" {
			crumbLevel = "warning"
		}

		intercept.Install(page.Interceptors, "console", level, slot, func(original browser.ConsoleFunc) browser.ConsoleFunc {
			return func(args ...any) {
				r.Capture(Crumb{
					Category: CategoryConsole,
					Message:  joinArgs(args),
					Level:    crumbLevel,
				})
				if original != nil {
					original(args...)
				}
			}
		})
	}
}

func joinArgs(args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		if arg != nil {
			parts[i] = fmt.Sprint(arg)
		}
	}
	return strings.Join(parts, " ")
}
