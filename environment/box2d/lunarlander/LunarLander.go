// Package lunarlander provides an implementation of the Lunar Lander
// environment simulated with Box2D.
package lunarlander

import (
	"fmt"
	"image/color"
	"math"

	"github.com/ByteArena/box2d"
	"github.com/fogleman/gg"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/timestep"
	"github.com/samuelfneumann/gopg/utils/floatutils"
)

const (
	FPS float64 = 50

	// speed of game, adjusts forces as well
	Scale float64 = 30.0

	XGravity float64 = 0.0
	YGravity float64 = -10.0

	MainEnginePower float64 = 13.0
	SideEnginePower float64 = 0.6

	LegAway         float64 = 20.0
	LegDown         float64 = 18.0
	LegW            float64 = 2.0
	LegH            float64 = 8.0
	LegSpringTorque float64 = 40.0

	SideEngineHeight float64 = 14.0
	SideEngineAway   float64 = 12.0

	Chunks int = 11

	ViewportW float64 = 600
	ViewportH float64 = 400

	// Action
	MaxContinuousAction float64 = 1.0
	MinContinuousAction float64 = -MaxContinuousAction

	// State observations
	StateObservations int     = 8
	MinAngle          float64 = -math.Pi
	MaxAngle          float64 = math.Pi

	// Box2D limits on velocity: 2.0 units per timestep
	MaxVelocity float64 = 2.0 / (1.0 / FPS) // In Box2D units
	MinVelocity float64 = -MaxVelocity      // in Box2D units

	// Box2D limits on rotation: π/2 radians per timestep
	MaxAngularVelocity float64 = 0.5 * math.Pi * FPS

	// Default starting values
	InitialX      float64 = (ViewportW / Scale / 2)
	InitialY      float64 = ((ViewportH - ViewportH/25) / Scale)
	InitialRandom float64 = 1000.0 // Set 1500 to make game harder
)

// LanderPoly holds the vertices of the lander body in pixels
var LanderPoly = [][]float64{
	{-14, 17},
	{-17, 0},
	{-17, -10},
	{17, -10},
	{17, 0},
	{14, 17},
}

// StartBounds returns the bounds on each element of the vectors that a
// Starter may return for a lunar lander environment: the starting x
// and y positions of the lander in the Box2D world and the magnitude
// of the random force initially applied to the lander.
func StartBounds() []r1.Interval {
	return []r1.Interval{
		{Min: 0.05 * ViewportW / Scale, Max: 0.95 * ViewportW / Scale},
		{Min: ViewportH / Scale / 2, Max: InitialY},
		{Min: 0, Max: math.Inf(1)},
	}
}

// DefaultStarter returns a Starter which always starts the lander at
// the top center of the viewport with the default random force
func DefaultStarter(seed uint64) environment.Starter {
	return environment.NewUniformStarter([]r1.Interval{
		{Min: InitialX, Max: InitialX},
		{Min: InitialY, Max: InitialY},
		{Min: InitialRandom, Max: InitialRandom},
	}, seed)
}

// WorldToPixelCoord converts Box2D world coordinates to pixel
// coordinates in the viewport
func WorldToPixelCoord(coords [2]float64) [2]float64 {
	x, y := coords[0], coords[1]
	return [2]float64{Scale * x, ViewportH - Scale*y}
}

// contactDetector tracks contacts of the lander body and legs with the
// moon
type contactDetector struct {
	env *lunarLander
}

func (c *contactDetector) touches(contact box2d.B2ContactInterface,
	body *box2d.B2Body) bool {
	return body == contact.GetFixtureA().GetBody() ||
		body == contact.GetFixtureB().GetBody()
}

func (c *contactDetector) BeginContact(contact box2d.B2ContactInterface) {
	// The ship should be landed gently, if the body touches the
	// ground it's game over
	if c.touches(contact, c.env.lander) {
		c.env.gameOver = true
	}
	if c.touches(contact, c.env.legs[0]) {
		c.env.leg1GroundContact = true
	}
	if c.touches(contact, c.env.legs[1]) {
		c.env.leg2GroundContact = true
	}
}

func (c *contactDetector) EndContact(contact box2d.B2ContactInterface) {
	if c.touches(contact, c.env.legs[0]) {
		c.env.leg1GroundContact = false
	}
	if c.touches(contact, c.env.legs[1]) {
		c.env.leg2GroundContact = false
	}
}

func (c *contactDetector) PreSolve(contact box2d.B2ContactInterface,
	oldManifold box2d.B2Manifold) {
}

func (c *contactDetector) PostSolve(contact box2d.B2ContactInterface,
	impulse *box2d.B2ContactImpulse) {
}

// lunarLander implements the physics of the lunar lander environment.
// Action semantics are implemented by the types that embed it.
type lunarLander struct {
	Task

	world box2d.B2World

	boundary []*box2d.B2Body
	xBounds  r1.Interval
	yBounds  r1.Interval

	moon         *box2d.B2Body
	moonVertices [][2]float64

	lander *box2d.B2Body

	legs              []*box2d.B2Body
	leg1GroundContact bool
	leg2GroundContact bool

	helipadX1 float64
	helipadX2 float64
	helipadY  float64

	gameOver bool
	rng      distuv.Uniform

	actionBounds r1.Interval
	angleBounds  r1.Interval

	discount float64
	prevStep timestep.TimeStep
	mPower   float64
	sPower   float64
}

func newLunarLander(task Task, discount float64,
	seed uint64) (*lunarLander, timestep.TimeStep, error) {
	if task == nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("newLunarLander: nil task")
	}

	l := &lunarLander{
		Task:     task,
		world:    box2d.MakeB2World(box2d.MakeB2Vec2(XGravity, YGravity)),
		rng:      distuv.Uniform{Min: 0, Max: 1, Src: rand.NewSource(seed)},
		discount: discount,
		actionBounds: r1.Interval{
			Min: MinContinuousAction,
			Max: MaxContinuousAction,
		},
		angleBounds: r1.Interval{Min: MinAngle, Max: MaxAngle},
	}
	bounds := StartBounds()
	l.xBounds, l.yBounds = bounds[0], bounds[1]
	task.registerEnv(l)

	step, err := l.Reset()
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("newLunarLander: %v", err)
	}
	return l, step, nil
}

// MPower returns the power used by the main engine on the last step
func (l *lunarLander) MPower() float64 {
	return l.mPower
}

// SPower returns the power used by the side engines on the last step
func (l *lunarLander) SPower() float64 {
	return l.sPower
}

// GroundContact returns whether each leg is touching the ground
func (l *lunarLander) GroundContact() (bool, bool) {
	return l.leg1GroundContact, l.leg2GroundContact
}

// IsGameOver returns whether the lander body has touched the ground
func (l *lunarLander) IsGameOver() bool {
	return l.gameOver
}

// IsAwake returns whether the lander is still moving. A lander that
// has come to rest is put to sleep by Box2D.
func (l *lunarLander) IsAwake() bool {
	return l.lander.IsAwake()
}

func (l *lunarLander) destroy() {
	if l.moon == nil {
		return
	}
	l.world.SetContactListener(nil)

	l.world.DestroyBody(l.moon)
	l.moon = nil

	l.world.DestroyBody(l.lander)
	l.lander = nil

	for _, leg := range l.legs {
		l.world.DestroyBody(leg)
	}
	for _, bound := range l.boundary {
		l.world.DestroyBody(bound)
	}
}

// Reset resets the environment with new terrain and a new starting
// position for the lander given by the Task's Starter
func (l *lunarLander) Reset() (timestep.TimeStep, error) {
	start := l.Start()
	if err := validateStart(start, l.xBounds, l.yBounds); err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	startData := start.Float64s()

	l.destroy()
	l.world.SetContactListener(&contactDetector{l})
	l.gameOver = false
	l.mPower = 0.0
	l.sPower = 0.0
	l.Task.reset()

	l.createBoundary()
	l.createMoon()
	l.createLander(startData[0], startData[1], startData[2])

	// Settle the lander for a single step to compute the first
	// observation and the Task's reward shaping baseline
	state := l.simulate([]float64{0.0, 0.0})
	l.Task.reward(state)

	obs := tensor.New(tensor.WithShape(StateObservations),
		tensor.WithBacking(state))
	l.prevStep = timestep.New(timestep.First, 0.0, l.discount, obs, 0)
	return l.prevStep, nil
}

// createBoundary surrounds the viewport with static edges so that the
// lander cannot leave it
func (l *lunarLander) createBoundary() {
	W := ViewportW / Scale
	H := ViewportH / Scale
	corners := []box2d.B2Vec2{
		box2d.MakeB2Vec2(0.0, 0.0),
		box2d.MakeB2Vec2(0.0, H),
		box2d.MakeB2Vec2(W, H),
		box2d.MakeB2Vec2(W, 0.0),
	}

	l.boundary = make([]*box2d.B2Body, len(corners))
	for i := range corners {
		boundsDef := box2d.NewB2BodyDef()
		boundsDef.Type = 0 // Static body
		l.boundary[i] = l.world.CreateBody(boundsDef)

		boundsShape := box2d.NewB2EdgeShape()
		boundsShape.Set(corners[i], corners[(i+1)%len(corners)])

		boundsFix := box2d.MakeB2FixtureDef()
		boundsFix.Shape = boundsShape
		l.boundary[i].CreateFixtureFromDef(&boundsFix)
	}
}

// createMoon creates random terrain with a flat landing pad in the
// center of the viewport
func (l *lunarLander) createMoon() {
	W := ViewportW / Scale
	H := ViewportH / Scale

	height := make([]float64, Chunks+1)
	for i := range height {
		height[i] = l.rng.Rand() * (H / 2.0)
	}

	chunkX := make([]float64, Chunks)
	for i := range chunkX {
		chunkX[i] = float64(i) * (W / float64(Chunks-1))
	}

	l.helipadX1 = chunkX[Chunks/2-1]
	l.helipadX2 = chunkX[Chunks/2+1]
	l.helipadY = H / 4
	for i := Chunks/2 - 2; i <= Chunks/2+2; i++ {
		height[i] = l.helipadY
	}

	smoothY := make([]float64, Chunks)
	for i := range smoothY {
		if i == 0 {
			smoothY[i] = 0.33 * (height[Chunks-1] + height[i] + height[i+1])
		} else {
			smoothY[i] = 0.33 * (height[i-1] + height[i] + height[i+1])
		}
	}

	moonDef := box2d.NewB2BodyDef()
	moonDef.Type = 0 // Static body
	l.moon = l.world.CreateBody(moonDef)

	moonShape := box2d.NewB2EdgeShape()
	moonShape.Set(box2d.MakeB2Vec2(0.0, 0.0), box2d.MakeB2Vec2(W, 0.0))
	moonFixture := box2d.MakeB2FixtureDef()
	moonFixture.Shape = moonShape
	l.moon.CreateFixtureFromDef(&moonFixture)

	l.moonVertices = make([][2]float64, 0, 2*(Chunks-1))
	for i := 0; i < Chunks-1; i++ {
		p1 := [2]float64{chunkX[i], smoothY[i]}
		p2 := [2]float64{chunkX[i+1], smoothY[i+1]}
		l.moonVertices = append(l.moonVertices, p1, p2)

		edge := box2d.NewB2EdgeShape()
		edge.Set(box2d.MakeB2Vec2(p1[0], p1[1]), box2d.MakeB2Vec2(p2[0], p2[1]))

		edgeFixture := box2d.MakeB2FixtureDef()
		edgeFixture.Shape = edge
		edgeFixture.Density = 0.0
		edgeFixture.Friction = 0.1
		l.moon.CreateFixtureFromDef(&edgeFixture)
	}
}

// createLander creates the lander and its legs at (x, y) and pushes it
// with a random force bounded by force in each dimension
func (l *lunarLander) createLander(x, y, force float64) {
	landerDef := box2d.MakeB2BodyDef()
	landerDef.Type = 2 // Dynamic body
	landerDef.Position = box2d.MakeB2Vec2(x, y)
	landerDef.Angle = 0.0
	l.lander = l.world.CreateBody(&landerDef)

	landerShape := box2d.NewB2PolygonShape()
	vertices := make([]box2d.B2Vec2, len(LanderPoly))
	for i := range LanderPoly {
		vertices[i] = box2d.MakeB2Vec2(LanderPoly[i][0]/Scale,
			LanderPoly[i][1]/Scale)
	}
	landerShape.Set(vertices, len(vertices))

	landerFix := box2d.MakeB2FixtureDef()
	landerFix.Shape = landerShape
	landerFix.Density = 5.0
	landerFix.Friction = 0.1
	landerFix.Restitution = 0.0
	landerFix.Filter.CategoryBits = 0x0010
	landerFix.Filter.MaskBits = 0x001
	l.lander.CreateFixtureFromDef(&landerFix)

	initialForce := box2d.MakeB2Vec2(
		(l.rng.Rand()*2*force)-force,
		(l.rng.Rand()*2*force)-force,
	)
	l.lander.ApplyForceToCenter(initialForce, true)

	l.legs = make([]*box2d.B2Body, 0, 2)
	for _, i := range []float64{-1.0, 1.0} {
		legDef := box2d.NewB2BodyDef()
		legDef.Type = 2 // Dynamic body
		legDef.Position = box2d.MakeB2Vec2(x-i*LegAway/Scale, y)
		legDef.Angle = i * 0.05
		leg := l.world.CreateBody(legDef)
		l.legs = append(l.legs, leg)

		legShape := box2d.NewB2PolygonShape()
		legShape.SetAsBox(LegW/Scale, LegH/Scale)

		legFix := box2d.MakeB2FixtureDef()
		legFix.Density = 1.0
		legFix.Restitution = 0.0
		legFix.Shape = legShape
		legFix.Filter.CategoryBits = 0x0020
		legFix.Filter.MaskBits = 0x001
		leg.CreateFixtureFromDef(&legFix)

		// Attach the leg to the lander with a spring loaded joint
		rjd := box2d.MakeB2RevoluteJointDef()
		rjd.BodyA = l.lander
		rjd.BodyB = leg
		rjd.LocalAnchorA = box2d.MakeB2Vec2(0., 0.)
		rjd.LocalAnchorB = box2d.MakeB2Vec2(i*LegAway/Scale, LegDown/Scale)
		rjd.EnableMotor = true
		rjd.EnableLimit = true
		rjd.MaxMotorTorque = LegSpringTorque
		rjd.MotorSpeed = 0.7 * i

		if i < 0 {
			rjd.LowerAngle = 0.9 - 0.5
			rjd.UpperAngle = 0.9
		} else {
			rjd.LowerAngle = -0.9
			rjd.UpperAngle = -0.9 + 0.5
		}
		l.world.CreateJoint(&rjd)
	}
	l.leg1GroundContact = false
	l.leg2GroundContact = false
}

// simulate fires the engines as described by the clipped action a,
// steps the Box2D world, and returns the resulting state observation
func (l *lunarLander) simulate(a []float64) []float64 {
	for i := range a {
		a[i] = floatutils.ClipInterval(a[i], l.actionBounds)
	}

	tip := [2]float64{
		math.Sin(l.lander.GetAngle()),
		math.Cos(l.lander.GetAngle()),
	}
	side := [2]float64{-tip[1], tip[0]}
	var dispersion [2]float64
	for i := range dispersion {
		dispersion[i] = (2*l.rng.Rand() - 1) / Scale
	}

	// Main engine
	mPower := 0.0
	if a[0] > 0.0 {
		mPower = (floatutils.Clip(a[0], 0.0, 1.0) + 1.0) * 0.5

		ox := tip[0]*(4.0/Scale+2.0*dispersion[0]) + side[0]*dispersion[1]
		oy := -tip[1]*(4.0/Scale+2.0*dispersion[0]) - side[1]*dispersion[1]

		impulsePos := box2d.MakeB2Vec2(
			l.lander.GetPosition().X+ox,
			l.lander.GetPosition().Y+oy,
		)
		linearImpulse := box2d.MakeB2Vec2(
			-ox*MainEnginePower*mPower,
			-oy*MainEnginePower*mPower,
		)
		l.lander.ApplyLinearImpulse(linearImpulse, impulsePos, true)
	}
	l.mPower = mPower

	// Orientation engines
	sPower := 0.0
	if math.Abs(a[1]) > 0.5 {
		direction := floatutils.Sign(a[1])
		sPower = floatutils.Clip(math.Abs(a[1]), 0.5, 1.0)

		ox := tip[0]*dispersion[0] + side[0]*(3.0*dispersion[1]+direction*
			SideEngineAway/Scale)
		oy := -tip[1]*dispersion[0] - side[1]*(3.0*dispersion[1]+direction*
			SideEngineAway/Scale)

		impulsePos := box2d.MakeB2Vec2(
			l.lander.GetPosition().X+ox-tip[0]*17.0/Scale,
			l.lander.GetPosition().Y+oy+tip[1]*SideEngineHeight/Scale,
		)
		linearImpulse := box2d.MakeB2Vec2(
			-ox*SideEnginePower*sPower,
			-oy*SideEnginePower*sPower,
		)
		l.lander.ApplyLinearImpulse(linearImpulse, impulsePos, true)
	}
	l.sPower = sPower

	l.world.Step(1.0/FPS, 6*int(Scale), 2*int(Scale))

	return l.observe()
}

// observe returns the current state observation
func (l *lunarLander) observe() []float64 {
	pos := l.lander.GetPosition()
	vel := l.lander.GetLinearVelocity()

	var leg1GroundContact, leg2GroundContact float64
	if l.leg1GroundContact {
		leg1GroundContact = 1.0
	}
	if l.leg2GroundContact {
		leg2GroundContact = 1.0
	}

	return []float64{
		(pos.X - ViewportW/Scale/2.0) / (ViewportW / Scale / 2.0),
		(pos.Y - (l.helipadY + LegDown/Scale)) / (ViewportH/Scale - l.helipadY),
		vel.X * (ViewportW / Scale / 2.0) / FPS,
		vel.Y * (ViewportH / Scale / 2.0) / FPS,
		floatutils.Wrap(l.lander.GetAngle(), l.angleBounds.Min,
			l.angleBounds.Max),
		20.0 * l.lander.GetAngularVelocity() / FPS,
		leg1GroundContact,
		leg2GroundContact,
	}
}

// step takes a single environmental step with a 2-dimensional action
func (l *lunarLander) step(action []float64) (timestep.TimeStep, bool,
	error) {
	if len(action) != 2 {
		return timestep.TimeStep{}, false, fmt.Errorf("step: illegal "+
			"action size \n\twant(2)\n\thave(%v)", len(action))
	}
	a := append([]float64(nil), action...)

	state := l.simulate(a)
	reward := l.Task.reward(state)

	obs := tensor.New(tensor.WithShape(StateObservations),
		tensor.WithBacking(state))
	t := timestep.New(timestep.Mid, reward, l.discount, obs,
		l.prevStep.Number+1)
	l.End(&t)

	l.prevStep = t
	return t, t.Last(), nil
}

// LastTimeStep returns the last TimeStep that occurred in the
// environment
func (l *lunarLander) LastTimeStep() timestep.TimeStep {
	return l.prevStep
}

// DiscountSpec returns the discount specification of the environment
func (l *lunarLander) DiscountSpec() environment.Spec {
	spec, err := environment.NewBoundedSpec(tensor.Shape{1},
		environment.Discount, l.discount, l.discount, environment.Continuous)
	if err != nil {
		panic(fmt.Sprintf("discountSpec: %v", err))
	}
	return spec
}

// ObservationSpec returns the observation specification of the
// environment. Velocity bounds are the Box2D limits expressed in the
// units of the observation.
func (l *lunarLander) ObservationSpec() environment.Spec {
	xVel := MaxVelocity * (ViewportW / Scale / 2.0) / FPS
	yVel := MaxVelocity * (ViewportH / Scale / 2.0) / FPS
	angularVel := 20.0 * MaxAngularVelocity / FPS

	lowerBound := mat.NewVecDense(StateObservations, []float64{
		-1., -1., -xVel, -yVel, l.angleBounds.Min, -angularVel, 0., 0.,
	})
	upperBound := mat.NewVecDense(StateObservations, []float64{
		1., 1., xVel, yVel, l.angleBounds.Max, angularVel, 1., 1.,
	})

	spec, err := environment.NewSpec(tensor.Shape{StateObservations},
		environment.Observation, lowerBound, upperBound,
		environment.Continuous)
	if err != nil {
		panic(fmt.Sprintf("observationSpec: %v", err))
	}
	return spec
}

// String converts the environment to a string representation
func (l *lunarLander) String() string {
	pos := l.lander.GetPosition()
	return fmt.Sprintf("LunarLander  |  position: (%.2f, %.2f)  |  step: %v",
		pos.X, pos.Y, l.prevStep.Number)
}

// Render draws the current frame of the environment and saves it as a
// PNG image in filename
func (l *lunarLander) Render(filename string) error {
	dc := gg.NewContext(int(ViewportW), int(ViewportH))
	dc.SetColor(color.RGBA{R: 30, G: 30, B: 30, A: 255})
	dc.Clear()

	// Moon
	dc.SetColor(color.White)
	start := WorldToPixelCoord([2]float64{l.moonVertices[0][0], 0})
	dc.MoveTo(start[0], start[1])
	for _, vertex := range l.moonVertices {
		coords := WorldToPixelCoord(vertex)
		dc.LineTo(coords[0], coords[1])
	}
	last := l.moonVertices[len(l.moonVertices)-1]
	end := WorldToPixelCoord([2]float64{last[0], 0})
	dc.LineTo(end[0], end[1])
	dc.ClosePath()
	dc.Fill()

	// Landing pad
	dc.SetColor(color.RGBA{R: 255, G: 166, B: 0, A: 255})
	dc.SetLineWidth(3.0)
	pad1 := WorldToPixelCoord([2]float64{l.helipadX1, l.helipadY})
	pad2 := WorldToPixelCoord([2]float64{l.helipadX2, l.helipadY})
	dc.DrawLine(pad1[0], pad1[1], pad2[0], pad2[1])
	dc.Stroke()

	// Lander and legs
	dc.SetColor(color.RGBA{R: 128, G: 102, B: 230, A: 255})
	for _, body := range append([]*box2d.B2Body{l.lander}, l.legs...) {
		for fix := body.GetFixtureList(); fix != nil; fix = fix.GetNext() {
			shape, ok := fix.GetShape().(*box2d.B2PolygonShape)
			if !ok {
				continue
			}

			dc.ClearPath()
			for i := 0; i < shape.M_count; i++ {
				vertex := box2d.B2TransformVec2Mul(body.GetTransform(),
					shape.M_vertices[i])
				coords := WorldToPixelCoord([2]float64{vertex.X, vertex.Y})
				dc.LineTo(coords[0], coords[1])
			}
			dc.ClosePath()
			dc.Fill()
		}
	}

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("render: %v", err)
	}
	return nil
}

func validateStart(start *tensor.Dense, xBounds, yBounds r1.Interval) error {
	state := start.Float64s()
	if len(state) != 3 {
		return fmt.Errorf("starting values should be 3-dimensional: %v",
			start.Shape())
	}

	if state[0] > xBounds.Max || state[0] < xBounds.Min {
		return fmt.Errorf("x position out of bounds, expected x ϵ [%v, %v] "+
			"but got x = %v", xBounds.Min, xBounds.Max, state[0])
	}

	if state[1] > yBounds.Max || state[1] < yBounds.Min {
		return fmt.Errorf("y position out of bounds, expected y ϵ [%v, %v] "+
			"but got y = %v", yBounds.Min, yBounds.Max, state[1])
	}

	if state[2] < 0 {
		return fmt.Errorf("random force must be non-negative: %v", state[2])
	}

	return nil
}
