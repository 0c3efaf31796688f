package render

import (
	"bytes"
	"image/png"
	"testing"

	"blade-arena/internal/game"
)

func sampleState() game.BroadcastState {
	return game.BroadcastState{
		Frame: 12,
		Players: []game.PlayerDTO{
			{UserID: 1, Name: "alice", Position: [2]float64{0, 0}, Size: 30,
				Blades: []game.BladeDTO{{Angle: 90, Length: 30, Damage: 1}}},
			{UserID: -1, Name: "Lu Bu", Position: [2]float64{400, -300}, Size: 45,
				Blades: []game.BladeDTO{{Angle: 0, Length: 60, Damage: 3}}},
		},
		Bonuses: []game.BonusDTO{{Type: game.BonusHealth, Position: [2]float64{-500, 500}}},
		Dead:    []game.PlayerDTO{{UserID: 2, Name: "bob", Position: [2]float64{200, 200}, Size: 20}},
	}
}

// TestEncodePNG verifies the preview is a decodable PNG of the requested size
func TestEncodePNG(t *testing.T) {
	p := NewPreview(128, 2000)

	var buf bytes.Buffer
	if err := p.EncodePNG(&buf, sampleState()); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 128 || b.Dy() != 128 {
		t.Errorf("bounds = %v, want 128x128", b)
	}
}

// TestDrawPlacesPlayers verifies world coordinates map onto the image
func TestDrawPlacesPlayers(t *testing.T) {
	p := NewPreview(200, 2000)
	p.Labels = false

	img := p.Draw(sampleState()).Image()

	// alice sits at the arena center
	r, g, b, _ := img.At(100, 100).RGBA()
	want := humanColor
	if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B {
		t.Errorf("center pixel = (%d,%d,%d), want %v", r>>8, g>>8, b>>8, want)
	}

	// the empty corner keeps the background
	r, g, b, _ = img.At(2, 2).RGBA()
	bg := backgroundColor
	if uint8(r>>8) != bg.R || uint8(g>>8) != bg.G || uint8(b>>8) != bg.B {
		t.Errorf("corner pixel = (%d,%d,%d), want %v", r>>8, g>>8, b>>8, bg)
	}
}

// TestDrawEmptyState verifies an empty room still renders
func TestDrawEmptyState(t *testing.T) {
	var buf bytes.Buffer
	if err := NewPreview(64, 2000).EncodePNG(&buf, game.EmptyState()); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Error("empty PNG")
	}
}
