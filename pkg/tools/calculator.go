package tools

import (
	"context"
	"math"

	"github.com/jllopis/spaceagent/pkg/tool"
)

const (
	// SpaceCalculator is the namespace of the navigation maths tools.
	SpaceCalculator = "space_calculator"

	kmPerAU            = 149597870.7
	kmPerLightYear     = 9460730472580.8
	gravitationalConst = 6.674e-11
	secondsPerYear     = 365.25 * 24 * 3600
)

// Point is a position in kilometres.
type Point struct {
	X float64 `json:"x" jsonschema:"description=X coordinate in kilometers"`
	Y float64 `json:"y" jsonschema:"description=Y coordinate in kilometers"`
	Z float64 `json:"z" jsonschema:"description=Z coordinate in kilometers"`
}

type distanceParams struct {
	CurrentCoordinates Point  `json:"current_coordinates" jsonschema:"required,description=Current spacecraft coordinates"`
	ObjectCoordinates  Point  `json:"object_coordinates" jsonschema:"required,description=Target object coordinates"`
	Unit               string `json:"unit,omitempty" jsonschema:"description=Unit of the returned distance,enum=km,enum=au,enum=ly,default=km"`
}

type distanceResult struct {
	Distance float64 `json:"distance"`
	Unit     string  `json:"unit"`
	Vector   Point   `json:"vector"`
}

type gravityParams struct {
	SpacecraftMass float64 `json:"spacecraft_mass" jsonschema:"required,description=Mass of the spacecraft in kg"`
	ObjectMass     float64 `json:"object_mass" jsonschema:"required,description=Mass of the celestial object in kg"`
	Distance       float64 `json:"distance" jsonschema:"required,description=Distance between the centres of mass in meters"`
}

type gravityResult struct {
	ForceNewtons     float64 `json:"force_newtons"`
	SpacecraftMassKg float64 `json:"spacecraft_mass_kg"`
	ObjectMassKg     float64 `json:"object_mass_kg"`
	DistanceM        float64 `json:"distance_m"`
}

type travelParams struct {
	Distance float64 `json:"distance" jsonschema:"required,description=Distance to travel in kilometers"`
	Speed    float64 `json:"speed" jsonschema:"required,description=Cruise speed in kilometers per second"`
}

type travelResult struct {
	Seconds float64 `json:"seconds"`
	Minutes float64 `json:"minutes"`
	Hours   float64 `json:"hours"`
	Days    float64 `json:"days"`
	Years   float64 `json:"years"`
}

// NewSpaceCalculator returns the distance, gravity and travel time tools.
func NewSpaceCalculator() *tool.Group {
	return tool.NewGroup(SpaceCalculator).
		Add("calculate_distance", tool.Func(calculateDistance),
			tool.WithDescription("Calculates the straight-line distance between the spacecraft and a target object. Use it for navigation and range checks."),
			tool.WithParams(&distanceParams{})).
		Add("calculate_gravity", tool.Func(calculateGravity),
			tool.WithDescription("Calculates the gravitational force between the spacecraft and a celestial object."),
			tool.WithParams(&gravityParams{})).
		Add("calculate_travel_time", tool.Func(calculateTravelTime),
			tool.WithDescription("Estimates how long a trip takes at a constant speed."),
			tool.WithParams(&travelParams{}))
}

func calculateDistance(_ context.Context, args tool.Args) (tool.Result, error) {
	p := distanceParams{Unit: "km"}
	if err := args.Decode(&p); err != nil {
		return tool.Result{}, err
	}
	v := Point{
		X: p.ObjectCoordinates.X - p.CurrentCoordinates.X,
		Y: p.ObjectCoordinates.Y - p.CurrentCoordinates.Y,
		Z: p.ObjectCoordinates.Z - p.CurrentCoordinates.Z,
	}
	d := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	switch p.Unit {
	case "km":
	case "au":
		d /= kmPerAU
	case "ly":
		d /= kmPerLightYear
	default:
		return tool.Errf("Unsupported unit: %s", p.Unit), nil
	}
	return tool.OK(distanceResult{Distance: round(d, 4), Unit: p.Unit, Vector: v}), nil
}

func calculateGravity(_ context.Context, args tool.Args) (tool.Result, error) {
	var p gravityParams
	if err := args.Decode(&p); err != nil {
		return tool.Result{}, err
	}
	if p.Distance <= 0 {
		return tool.Err("Distance must be greater than zero"), nil
	}
	f := gravitationalConst * p.SpacecraftMass * p.ObjectMass / (p.Distance * p.Distance)
	return tool.OK(gravityResult{
		ForceNewtons:     round(f, 4),
		SpacecraftMassKg: p.SpacecraftMass,
		ObjectMassKg:     p.ObjectMass,
		DistanceM:        p.Distance,
	}), nil
}

func calculateTravelTime(_ context.Context, args tool.Args) (tool.Result, error) {
	var p travelParams
	if err := args.Decode(&p); err != nil {
		return tool.Result{}, err
	}
	if p.Speed <= 0 {
		return tool.Err("Speed must be greater than zero"), nil
	}
	s := p.Distance / p.Speed
	return tool.OK(travelResult{
		Seconds: round(s, 2),
		Minutes: round(s/60, 2),
		Hours:   round(s/3600, 2),
		Days:    round(s/86400, 2),
		Years:   round(s/secondsPerYear, 4),
	}), nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
