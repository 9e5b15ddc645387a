package publish

import (
	"context"
	"testing"

	"promoscan/internal/config"
)

func TestObjectName(t *testing.T) {
	if got := objectName("", "/tmp/out/promozioni_eurospin.json"); got != "promozioni_eurospin.json" {
		t.Errorf("Expected artifact base name, got %q", got)
	}
	if got := objectName("promo/latest.json", "/tmp/out/promozioni_eurospin.json"); got != "promo/latest.json" {
		t.Errorf("Expected configured object, got %q", got)
	}
}

func TestClientOptions(t *testing.T) {
	if opts := clientOptions(""); len(opts) != 0 {
		t.Errorf("Expected no options without credentials file, got %d", len(opts))
	}
	if opts := clientOptions("/etc/creds.json"); len(opts) != 1 {
		t.Errorf("Expected one option, got %d", len(opts))
	}
}

func TestFromConfigDisabled(t *testing.T) {
	publishers, closeAll, err := FromConfig(context.Background(), config.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer closeAll()
	if len(publishers) != 0 {
		t.Errorf("Expected no publishers by default, got %d", len(publishers))
	}
}
