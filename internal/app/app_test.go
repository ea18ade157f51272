package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cartoonify/internal/domain"
	"cartoonify/internal/flow"
	"cartoonify/internal/infra"
	"cartoonify/internal/providers/image"
)

func testConfig(t *testing.T) *infra.Config {
	t.Helper()
	return &infra.Config{
		AppEnv:            "test",
		StoragePath:       t.TempDir(),
		Processor:         infra.ProcessorSynthetic,
		ProcessingDelay:   0,
		ProcessingTimeout: 5 * time.Second,
		HistoryLoadLimit:  10,
	}
}

func TestNewWiresInMemoryFlow(t *testing.T) {
	rec := &flow.Recorder{}
	a, err := New(context.Background(), testConfig(t), zerolog.Nop(), WithSink(rec))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	s := a.Controller.NewSession()
	if _, err := a.Controller.ProvideImage(ctx, s.ID, flow.ImageRef("file:///me.jpg")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.Controller.SelectStyle(ctx, s.ID, "comic", 0.7); err != nil {
		t.Fatal(err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	got, err := a.Controller.Await(waitCtx, s.ID)
	if err != nil || got.Status != domain.SessionStatusReady {
		t.Fatalf("await: status=%s err=%v", got.Status, err)
	}
	if a.History.Len() != 1 {
		t.Fatalf("history len = %d", a.History.Len())
	}
	if len(rec.Kinds(s.ID)) == 0 {
		t.Fatal("extra sink received no events")
	}
}

func TestNewUsesCatalogOverride(t *testing.T) {
	cfg := testConfig(t)
	cfg.StyleCatalogPath = filepath.Join(t.TempDir(), "styles.json")
	raw := `[{"id":"noir","display_name":"film noir","preview_ref":"https://cdn/noir.png","is_premium":false}]`
	if err := os.WriteFile(cfg.StyleCatalogPath, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	a, err := New(context.Background(), cfg, zerolog.Nop(), WithProcessor(image.NewSynthetic(image.WithDelay(0))))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()
	if styles := a.Catalog.All(); len(styles) != 1 || styles[0].ID != "noir" {
		t.Fatalf("styles = %+v", styles)
	}
}

func TestNewRejectsMissingCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.StyleCatalogPath = filepath.Join(t.TempDir(), "missing.json")
	if _, err := New(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}

func TestNewProcessorSelectsRemote(t *testing.T) {
	cfg := testConfig(t)
	cfg.Processor = infra.ProcessorRemote
	cfg.ProcessorBaseURL = "https://styles.example.com"
	proc, err := newProcessor(cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := proc.(*image.Remote); !ok {
		t.Fatalf("processor = %T, want *image.Remote", proc)
	}
}
