package report

import "github.com/lognitor/go-tracer/browser"

// SnapshotEnvironment reads the screen size, user agent and language.
func SnapshotEnvironment(page *browser.Page) Environment {
	var env Environment
	if page == nil {
		return env
	}
	if page.Document != nil {
		env.ScreenWidth = page.Document.ClientWidth()
		env.ScreenHeight = page.Document.ClientHeight()
	}
	if page.Navigator != nil {
		env.UserAgent = page.Navigator.UserAgent()
		env.Language = page.Navigator.Language()
	}
	return env
}
