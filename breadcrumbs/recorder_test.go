package breadcrumbs

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lognitor/go-tracer/browser/browsertest"
	"github.com/lognitor/go-tracer/configs"
	"github.com/lognitor/go-tracer/telemetry"
)

var allSources = configs.AutoBreadcrumbs{DOM: true, XHR: true, Location: true, Console: true}

func TestCaptureStampsAndEvicts(t *testing.T) {
	mock := clock.NewMock()
	metrics := telemetry.New()
	r := NewRecorder(3, WithClock(mock), WithMetrics(metrics))

	for i := 1; i <= 5; i++ {
		mock.Add(time.Second)
		r.Capture(Crumb{Category: CategoryConsole, Message: strconv.Itoa(i)})
	}

	got := r.Snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, "3", got[0].Message)
	assert.Equal(t, "5", got[2].Message)
	assert.Equal(t, mock.Now().UnixMilli(), got[2].Timestamp)
	assert.Equal(t, got[2].Timestamp-2000, got[0].Timestamp)
	assert.Equal(t, 5.0, metrics.Counter("breadcrumbs", CategoryConsole))
}

func TestDOMBreadcrumbs(t *testing.T) {
	b := browsertest.New()
	r := NewRecorder(10)
	r.Install(b.Page, configs.AutoBreadcrumbs{DOM: true})

	body := browsertest.Tree()
	main := body.Child("DIV").WithID("main")
	button := main.Child("BUTTON").WithClass("btn  primary").WithAttr("type", "submit")
	checkbox := main.Child("INPUT").WithAttr("type", "checkbox").WithAttr("name", "agree")
	text := main.Child("INPUT").WithAttr("type", "text")

	b.Click(button)
	b.Click(main)
	b.Click(checkbox)
	b.Blur(text)
	b.Blur(checkbox)

	got := r.Snapshot()
	require.Len(t, got, 3)

	assert.Equal(t, CategoryClick, got[0].Category)
	assert.Equal(t, `body > div#main > button.btn.primary[type="submit"]`, got[0].HTMLTree)

	assert.Equal(t, CategoryClick, got[1].Category)
	assert.Equal(t, `body > div#main > input[type="checkbox"][name="agree"]`, got[1].HTMLTree)

	assert.Equal(t, CategoryInput, got[2].Category)
	assert.Equal(t, `body > div#main > input[type="text"]`, got[2].HTMLTree)
}

func TestHTMLTreeAsStringLimits(t *testing.T) {
	long := strings.Repeat("x", 30)
	el := browsertest.NewElement("div", nil).WithID(long)
	for i := 0; i < 4; i++ {
		el = el.Child("div").WithID(long)
	}
	// two segments fit, a third would reach 80 characters
	assert.Equal(t, "div#"+long+" > div#"+long, HTMLTreeAsString(el))

	short := browsertest.NewElement("p", nil)
	for i := 0; i < 6; i++ {
		short = short.Child("p")
	}
	assert.Equal(t, "p > p > p > p > p", HTMLTreeAsString(short))

	assert.Equal(t, "", HTMLTreeAsString(browsertest.NewElement("HTML", nil)))
}

func TestXHRBreadcrumbs(t *testing.T) {
	b := browsertest.New(browsertest.WithAutoRespond(200))
	r := NewRecorder(10)
	r.Install(b.Page, configs.AutoBreadcrumbs{XHR: true})

	b.Fetch("GET", "/api/items", nil)

	got := r.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "http", got[0].Type)
	assert.Equal(t, CategoryXHR, got[0].Category)
	assert.Equal(t, map[string]string{"method": "GET", "url": "/api/items", "statusCode": "200"}, got[0].Data)
}

func TestXHRBreadcrumbsChainExistingHandler(t *testing.T) {
	b := browsertest.New()
	r := NewRecorder(10)
	r.Install(b.Page, configs.AutoBreadcrumbs{XHR: true})

	x := b.Page.Requests.NewXHR()
	calls := 0
	x.SetOnReadyStateChange(func() { calls++ })
	x.Open("POST", "/save")
	x.Send([]byte("{}"))
	b.Respond(x.(*browsertest.XHR), 404)

	assert.Equal(t, 2, calls, "opened and done")
	got := r.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "404", got[0].Data["statusCode"])
	assert.Equal(t, "POST", got[0].Data["method"])
}

func TestXHRInstallIsIdempotent(t *testing.T) {
	b := browsertest.New(browsertest.WithAutoRespond(200))
	first := NewRecorder(10)
	second := NewRecorder(10)
	first.Install(b.Page, allSources)
	second.Install(b.Page, allSources)

	b.Fetch("GET", "/a", nil)

	opens, sends := b.NativeCalls()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, sends)
	assert.Equal(t, 1, first.Len())
	assert.Zero(t, second.Len())
	assert.Len(t, b.Page.Interceptors.Records(), 2+2+len(b.Page.Console.Methods))
}

func TestNavigationBreadcrumbs(t *testing.T) {
	b := browsertest.New(browsertest.WithHref("http://localhost/a"))
	popped := 0
	b.Page.OnPopState.Set(func() { popped++ })

	r := NewRecorder(10)
	r.Install(b.Page, configs.AutoBreadcrumbs{Location: true})

	b.PushState("/b")
	b.PushState("http://other.example/c")
	b.PopState("http://localhost/d")
	b.PushState("")

	got := r.Snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, map[string]string{"from": "/a", "to": "/b"}, got[0].Data)
	assert.Equal(t, map[string]string{"from": "/b", "to": "http://other.example/c"}, got[1].Data)
	assert.Equal(t, map[string]string{"from": "http://other.example/c", "to": "/d"}, got[2].Data)
	assert.Equal(t, CategoryNavigation, got[2].Category)

	assert.Equal(t, 1, popped)
	assert.Equal(t, "http://localhost/d", b.Href())
}

func TestConsoleBreadcrumbs(t *testing.T) {
	b := browsertest.New()
	r := NewRecorder(10)
	r.Install(b.Page, configs.AutoBreadcrumbs{Console: true})

	b.Log("warn", "disk", 93, "%")
	b.Log("log", "plain")

	got := r.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, Crumb{Category: CategoryConsole, Timestamp: got[0].Timestamp, Message: "disk 93 %", Level: "warning"}, got[0])
	assert.Equal(t, "log", got[1].Level)

	assert.Equal(t, []string{"warn: disk 93 %", "log: plain"}, b.ConsoleOutput())
}

func TestDisabledSourcesRecordNothing(t *testing.T) {
	b := browsertest.New(browsertest.WithAutoRespond(200))
	r := NewRecorder(10)
	r.Install(b.Page, configs.AutoBreadcrumbs{})

	b.Click(browsertest.Tree().Child("a"))
	b.Fetch("GET", "/a", nil)
	b.PushState("/b")
	b.Log("info", "x")

	assert.Zero(t, r.Len())
	assert.Empty(t, b.Page.Interceptors.Records())
}

func TestParseURL(t *testing.T) {
	u, ok := ParseURL("https://example.com:8080/a/b?x=1#top")
	require.True(t, ok)
	assert.Equal(t, URL{Protocol: "https", Host: "example.com:8080", Path: "/a/b", Relative: "/a/b?x=1#top"}, u)

	u, ok = ParseURL("/relative?q")
	require.True(t, ok)
	assert.Equal(t, URL{Path: "/relative", Relative: "/relative?q"}, u)
}
