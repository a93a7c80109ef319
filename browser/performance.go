package browser

// NavigationTiming is window.performance.timing, in ms since the epoch.
// Marks that did not happen are 0.
type NavigationTiming struct {
	NavigationStart            float64 `json:"navigationStart"`
	UnloadEventStart           float64 `json:"unloadEventStart"`
	UnloadEventEnd             float64 `json:"unloadEventEnd"`
	RedirectStart              float64 `json:"redirectStart"`
	RedirectEnd                float64 `json:"redirectEnd"`
	FetchStart                 float64 `json:"fetchStart"`
	DomainLookupStart          float64 `json:"domainLookupStart"`
	DomainLookupEnd            float64 `json:"domainLookupEnd"`
	ConnectStart               float64 `json:"connectStart"`
	ConnectEnd                 float64 `json:"connectEnd"`
	SecureConnectionStart      float64 `json:"secureConnectionStart"`
	RequestStart               float64 `json:"requestStart"`
	ResponseStart              float64 `json:"responseStart"`
	ResponseEnd                float64 `json:"responseEnd"`
	DomLoading                 float64 `json:"domLoading"`
	DomInteractive             float64 `json:"domInteractive"`
	DomContentLoadedEventStart float64 `json:"domContentLoadedEventStart"`
	DomContentLoadedEventEnd   float64 `json:"domContentLoadedEventEnd"`
	DomComplete                float64 `json:"domComplete"`
	LoadEventStart             float64 `json:"loadEventStart"`
	LoadEventEnd               float64 `json:"loadEventEnd"`
}

// NavigationInfo is window.performance.navigation.
type NavigationInfo struct {
	Type          int
	RedirectCount int
}

// ResourceEntry is one performance.getEntriesByType("resource") entry.
type ResourceEntry struct {
	Name          string
	InitiatorType string
	Duration      float64
	TransferSize  int64
}

// Performance is window.performance.
type Performance interface {
	Timing() NavigationTiming
	Navigation() NavigationInfo
	Resources() []ResourceEntry
}
