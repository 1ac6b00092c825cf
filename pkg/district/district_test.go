package district

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     string
		found    bool
	}{
		{"Alexanderplatz", 52.5219, 13.4132, "Mitte", true},
		{"Greifswalder Strasse", 52.5450, 13.4420, "Prenzlauer Berg", true},
		{"Boxhagener Platz", 52.5100, 13.4590, "Friedrichshain", true},
		{"Kottbusser Tor", 52.4990, 13.4180, "Kreuzberg", true},
		{"Hermannplatz area", 52.4780, 13.4250, "Neukölln", true},
		{"Savignyplatz", 52.5050, 13.3220, "Charlottenburg", true},
		{"Hamburg", 53.5511, 9.9937, "", false},
		{"Potsdam", 52.3906, 13.0645, "", false},
		{"South Atlantic", 0, 0, "", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, ok := Resolve(test.lat, test.lon)
			if ok != test.found {
				t.Fatalf("Resolve(%v, %v) found=%v, want %v", test.lat, test.lon, ok, test.found)
			}
			if got != test.want {
				t.Errorf("Resolve(%v, %v) = %q, want %q", test.lat, test.lon, got, test.want)
			}
		})
	}
}

func TestResolveOverlapOrder(t *testing.T) {
	// Central Mitte coordinates also fall inside other boxes; the first
	// listed region must win deterministically.
	got, ok := Resolve(52.525, 13.410)
	if !ok {
		t.Fatal("Expected central Berlin to resolve")
	}
	if got != "Mitte" {
		t.Errorf("Expected Mitte to win the overlap, got %s", got)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != len(regions) {
		t.Fatalf("Expected %d names, got %d", len(regions), len(names))
	}
	if names[0] != "Mitte" {
		t.Errorf("Expected Mitte first, got %s", names[0])
	}
}
