package tools

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/jllopis/spaceagent/pkg/tool"
)

// StellarLocator is the namespace of the galactic catalogue tools.
const StellarLocator = "stellar_locator"

//go:embed celestial_objects.yaml
var celestialObjectsYAML []byte

// GridPosition is a location on the galactic grid.
type GridPosition struct {
	Sector   string  `json:"sector" yaml:"sector"`
	Quadrant string  `json:"quadrant" yaml:"quadrant"`
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	Z        float64 `json:"z" yaml:"z"`
}

// CelestialObject is one catalogue entry. Hidden objects only show up on
// deep or ultra scans.
type CelestialObject struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Type        string       `yaml:"type"`
	Class       string       `yaml:"class"`
	Coordinates GridPosition `yaml:"coordinates"`
	Description string       `yaml:"description"`
	Status      string       `yaml:"status"`
	Hidden      bool         `yaml:"hidden"`
}

// ParseCelestialObjects decodes a YAML catalogue.
func ParseCelestialObjects(data []byte) ([]CelestialObject, error) {
	var objs []CelestialObject
	if err := yaml.Unmarshal(data, &objs); err != nil {
		return nil, fmt.Errorf("parse celestial catalogue: %w", err)
	}
	return objs, nil
}

// DefaultCelestialObjects returns the built-in catalogue.
func DefaultCelestialObjects() []CelestialObject {
	objs, err := ParseCelestialObjects(celestialObjectsYAML)
	if err != nil {
		panic(err)
	}
	return objs
}

var quadrants = []string{"NE", "NW", "SE", "SW"}

type locateParams struct {
	Coordinates map[string]any `json:"coordinates" jsonschema:"required,description=Galactic grid position: sector (e.g. A7) quadrant (NE/NW/SE/SW) and x/y/z within the quadrant (0-999)"`
}

type searchParams struct {
	Name       string `json:"name" jsonschema:"required,description=Full or partial name of the celestial object"`
	ObjectType string `json:"object_type,omitempty" jsonschema:"description=Type of object to search for,enum=planet,enum=moon,enum=star,enum=station,enum=probe,enum=anomaly,enum=any,default=any"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return,default=5"`
}

type scanParams struct {
	Sector    string `json:"sector" jsonschema:"required,description=Alpha-numeric sector designation (e.g. A7 or C12)"`
	Quadrant  string `json:"quadrant" jsonschema:"required,description=Quadrant to scan or all for the entire sector,enum=NE,enum=NW,enum=SE,enum=SW,enum=all"`
	ScanDepth string `json:"scan_depth" jsonschema:"required,description=Deeper scans reveal more hidden objects,enum=standard,enum=deep,enum=ultra"`
}

type objectInfo struct {
	Name             string       `json:"name"`
	Type             string       `json:"type"`
	Class            string       `json:"class"`
	Description      string       `json:"description"`
	Status           string       `json:"status"`
	ExactCoordinates GridPosition `json:"exact_coordinates"`
}

type nearbyObject struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Distance    float64      `json:"distance"`
	Coordinates GridPosition `json:"coordinates"`
}

type locateFound struct {
	Found  bool       `json:"found"`
	Object objectInfo `json:"object"`
}

type locateMissed struct {
	Found          bool           `json:"found"`
	Message        string         `json:"message"`
	NearestObjects []nearbyObject `json:"nearest_objects"`
}

type searchHit struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Class       string       `json:"class"`
	Coordinates GridPosition `json:"coordinates"`
	Status      string       `json:"status"`
	Description string       `json:"description"`
}

type searchResult struct {
	Found   bool        `json:"found"`
	Message string      `json:"message,omitempty"`
	Count   int         `json:"count"`
	Results []searchHit `json:"results"`
}

type scanInfo struct {
	Sector    string `json:"sector"`
	Quadrant  string `json:"quadrant"`
	ScanDepth string `json:"scan_depth"`
	ScanPower string `json:"scan_power"`
}

type scannedObject struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Class       string       `json:"class"`
	Coordinates GridPosition `json:"coordinates"`
	Status      string       `json:"status"`
}

type scanFound struct {
	ScanInfo          scanInfo        `json:"scan_info"`
	Found             bool            `json:"found"`
	Count             int             `json:"count"`
	Objects           []scannedObject `json:"objects"`
	UnknownSignatures int             `json:"unknown_signatures"`
}

type scanEmpty struct {
	ScanInfo scanInfo        `json:"scan_info"`
	Found    bool            `json:"found"`
	Message  string          `json:"message"`
	Count    int             `json:"count"`
	Objects  []scannedObject `json:"objects"`
}

// StellarOption configures the stellar locator.
type StellarOption func(*stellarLocator)

// WithCelestialObjects replaces the built-in catalogue.
func WithCelestialObjects(objs []CelestialObject) StellarOption {
	return func(s *stellarLocator) { s.objects = objs }
}

// WithRandom sets the source deep scans use to decide whether hidden objects
// are detected. It must return values in [0, 1).
func WithRandom(fn func() float64) StellarOption {
	return func(s *stellarLocator) { s.random = fn }
}

type stellarLocator struct {
	objects []CelestialObject
	random  func() float64
}

// NewStellarLocator returns the locate, search and scan tools.
func NewStellarLocator(opts ...StellarOption) *tool.Group {
	s := &stellarLocator{random: rand.Float64}
	for _, opt := range opts {
		opt(s)
	}
	if s.objects == nil {
		s.objects = DefaultCelestialObjects()
	}
	return tool.NewGroup(StellarLocator).
		Add("locate_celestial_object", tool.Func(s.locate),
			tool.WithDescription("Finds what lies at galactic grid coordinates, or the nearest known objects in the same sector."),
			tool.WithParams(&locateParams{})).
		Add("search_by_name", tool.Func(s.searchByName),
			tool.WithDescription("Searches planets, moons, stations, probes and anomalies by full or partial name."),
			tool.WithParams(&searchParams{})).
		Add("scan_region", tool.Func(s.scanRegion),
			tool.WithDescription("Scans a sector or quadrant and lists every object detected. Deeper scans can reveal hidden objects."),
			tool.WithParams(&scanParams{}))
}

func (s *stellarLocator) locate(_ context.Context, args tool.Args) (tool.Result, error) {
	var p locateParams
	if err := args.Decode(&p); err != nil {
		return tool.Result{}, err
	}
	for _, field := range []string{"sector", "quadrant", "x", "y", "z"} {
		if _, ok := p.Coordinates[field]; !ok {
			return tool.Errf("Missing required coordinate: %s", field), nil
		}
	}
	pos := GridPosition{
		Sector:   cast.ToString(p.Coordinates["sector"]),
		Quadrant: cast.ToString(p.Coordinates["quadrant"]),
	}
	if !slices.Contains(quadrants, pos.Quadrant) {
		return tool.Errf("Invalid quadrant: %s. Must be NE, NW, SE, or SW.", pos.Quadrant), nil
	}
	for _, axis := range []struct {
		name string
		dst  *float64
	}{{"x", &pos.X}, {"y", &pos.Y}, {"z", &pos.Z}} {
		raw := p.Coordinates[axis.name]
		v, err := cast.ToFloat64E(raw)
		if err != nil || v < 0 || v > 999 {
			return tool.Errf("Invalid %s coordinate: %v. Must be a number between 0-999.", axis.name, raw), nil
		}
		*axis.dst = v
	}

	for _, obj := range s.objects {
		c := obj.Coordinates
		if obj.Hidden || c.Sector != pos.Sector || c.Quadrant != pos.Quadrant {
			continue
		}
		if math.Abs(c.X-pos.X) <= 2 && math.Abs(c.Y-pos.Y) <= 2 && math.Abs(c.Z-pos.Z) <= 2 {
			return tool.OK(locateFound{Found: true, Object: objectInfo{
				Name:             obj.Name,
				Type:             obj.Type,
				Class:            obj.Class,
				Description:      obj.Description,
				Status:           obj.Status,
				ExactCoordinates: obj.Coordinates,
			}}), nil
		}
	}

	nearest := []nearbyObject{}
	for _, obj := range s.objects {
		c := obj.Coordinates
		if obj.Hidden || c.Sector != pos.Sector {
			continue
		}
		nearest = append(nearest, nearbyObject{
			Name:        obj.Name,
			Type:        obj.Type,
			Distance:    math.Sqrt((c.X-pos.X)*(c.X-pos.X) + (c.Y-pos.Y)*(c.Y-pos.Y) + (c.Z-pos.Z)*(c.Z-pos.Z)),
			Coordinates: c,
		})
	}
	sort.SliceStable(nearest, func(i, j int) bool { return nearest[i].Distance < nearest[j].Distance })
	if len(nearest) > 3 {
		nearest = nearest[:3]
	}
	msg := "No exact match found at these coordinates."
	if len(nearest) == 0 {
		msg = fmt.Sprintf("No celestial objects found in sector %s.", pos.Sector)
	}
	return tool.OK(locateMissed{Message: msg, NearestObjects: nearest}), nil
}

func (s *stellarLocator) searchByName(_ context.Context, args tool.Args) (tool.Result, error) {
	p := searchParams{ObjectType: "any", MaxResults: 5}
	if err := args.Bind(&p, "name"); err != nil {
		return tool.Result{}, err
	}
	if p.Name == "" {
		return tool.Err("Name parameter cannot be empty"), nil
	}
	name := strings.ToLower(p.Name)
	multiWord := len(strings.Fields(name)) > 1

	var hits []searchHit
	for _, obj := range s.objects {
		if obj.Hidden || (p.ObjectType != "any" && obj.Type != p.ObjectType) {
			continue
		}
		lower := strings.ToLower(obj.Name)
		if lower != name && !strings.Contains(lower, name) {
			continue
		}
		hit := searchHit{
			Name:        obj.Name,
			Type:        obj.Type,
			Class:       obj.Class,
			Coordinates: obj.Coordinates,
			Status:      obj.Status,
			Description: obj.Description,
		}
		if lower == name && multiWord {
			return tool.OK(searchResult{Found: true, Count: 1, Results: []searchHit{hit}}), nil
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		ei, ej := strings.ToLower(hits[i].Name) == name, strings.ToLower(hits[j].Name) == name
		if ei != ej {
			return ei
		}
		return hits[i].Name < hits[j].Name
	})
	if p.MaxResults >= 0 && len(hits) > p.MaxResults {
		hits = hits[:p.MaxResults]
	}
	if len(hits) == 0 {
		return tool.OK(searchResult{
			Message: fmt.Sprintf("No celestial objects found matching '%s'.", name),
			Results: []searchHit{},
		}), nil
	}
	return tool.OK(searchResult{Found: true, Count: len(hits), Results: hits}), nil
}

func (s *stellarLocator) scanRegion(_ context.Context, args tool.Args) (tool.Result, error) {
	var p scanParams
	if err := args.Decode(&p); err != nil {
		return tool.Result{}, err
	}
	if p.Sector == "" {
		return tool.Err("Sector parameter cannot be empty"), nil
	}
	if p.Quadrant != "all" && !slices.Contains(quadrants, p.Quadrant) {
		return tool.Errf("Invalid quadrant: %s. Must be NE, NW, SE, SW, or 'all'", p.Quadrant), nil
	}

	info := scanInfo{Sector: p.Sector, Quadrant: p.Quadrant, ScanDepth: p.ScanDepth}
	if p.Quadrant == "all" {
		info.Quadrant = "Full sector scan"
	}
	var revealHidden bool
	switch p.ScanDepth {
	case "standard":
		info.ScanPower = "Standard"
	case "deep":
		info.ScanPower = "Enhanced"
		revealHidden = s.random() < 0.5
	case "ultra":
		info.ScanPower = "Maximum"
		revealHidden = true
	default:
		return tool.Errf("Invalid scan depth: %s. Must be 'standard', 'deep', or 'ultra'", p.ScanDepth), nil
	}

	var objects []scannedObject
	hidden := 0
	for _, obj := range s.objects {
		c := obj.Coordinates
		if c.Sector != p.Sector || (p.Quadrant != "all" && c.Quadrant != p.Quadrant) {
			continue
		}
		if obj.Hidden {
			hidden++
			if !revealHidden {
				continue
			}
		}
		objects = append(objects, scannedObject{
			Name:        obj.Name,
			Type:        obj.Type,
			Class:       obj.Class,
			Coordinates: c,
			Status:      obj.Status,
		})
	}

	if len(objects) == 0 {
		return tool.OK(scanEmpty{
			ScanInfo: info,
			Message:  fmt.Sprintf("No celestial objects detected in %s %s.", p.Sector, p.Quadrant),
			Objects:  []scannedObject{},
		}), nil
	}
	unknown := 0
	if !revealHidden {
		unknown = hidden
	}
	return tool.OK(scanFound{
		ScanInfo:          info,
		Found:             true,
		Count:             len(objects),
		Objects:           objects,
		UnknownSignatures: unknown,
	}), nil
}
