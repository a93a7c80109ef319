package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lognitor/go-tracer/agent"
	"github.com/lognitor/go-tracer/browser/browsertest"
	"github.com/lognitor/go-tracer/configs"
	"github.com/lognitor/go-tracer/report"
	"github.com/lognitor/go-tracer/writers"
)

type order struct {
	ID    string `json:"id"`
	Items int    `json:"items"`
}

func main() {
	cfg, err := configs.NewCollector("localhost:4443", configs.DefaultExceptionURL, "sometoken")
	if err != nil {
		log.Fatalf("failed to create collector config: %v", err)
	}
	cfg.SetHttpTimeout(time.Second * 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	writer, err := writers.NewCollectorWriter(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to create collector writer: %v", err)
	}
	defer func() {
		if err = writer.Close(); err != nil {
			log.Fatalf("failed to close writer: %s", err)
		}
	}()

	b := browsertest.New(
		browsertest.WithHref("http://shop.local/cart"),
		browsertest.WithTitle("Cart"),
		browsertest.WithAutoRespond(200),
	)

	a, err := agent.New(b.Page, map[string]any{
		"apiKey":          "sometoken",
		"version":         "1.0.0",
		"autoBreadcrumbs": map[string]any{"console": true},
	},
		agent.WithTransport(writer),
		agent.WithEvents(func(e report.Event) {
			switch e.Type {
			case report.EventSuccess:
				log.Printf("report %s delivered", e.Report.GUID)
			case report.EventFailure:
				log.Printf("report %s failed: %s", e.Report.GUID, e.Err)
			}
		}),
	)
	if err != nil {
		log.Fatalf("failed to create tracer: %v", err)
	}
	a.Start()

	b.Click(browsertest.Tree().Child("button").WithID("checkout"))
	b.Fetch("POST", "/api/orders", nil)
	b.Log("info", "checkout started")

	for i := 0; i <= 5; i++ {
		go test(a, i)
	}

	<-ctx.Done()
}

func test(a *agent.Agent, n int) {
	for i := 0; i < 3; i++ {
		o := order{ID: fmt.Sprintf("%d-%d", n, i), Items: i}
		if o.Items == 0 {
			a.CaptureException(fmt.Errorf("order %s is empty", o.ID))
			continue
		}
		a.CaptureMessage(fmt.Sprintf("order %s placed", o.ID))
	}
}
