package core

// Body is the positional part shared by both combatants.
type Body struct {
	X, Y  float64
	Angle float64
}

type Player struct {
	Body
	Health    int
	ID        string // empty until the connection opens
	Character Character

	throwTimer float64 // seconds left in the current throw animation
}

type Opponent struct {
	Body
	Health   int
	Cooldown float64
}

type Owner uint8

const (
	OwnerPlayer Owner = iota
	OwnerAI
)

func (o Owner) String() string {
	if o == OwnerAI {
		return "ai"
	}
	return "player"
}

type Projectile struct {
	X, Y     float64
	VX, VY   float64
	Owner    Owner
	TTL      float64
	FromHand bool
}

// Arena is the playable rectangle [0,W]x[0,H].
type Arena struct {
	W, H float64
}

var DefaultArena = Arena{W: ArenaWidth, H: ArenaHeight}

func (a Arena) Center() (float64, float64) {
	return a.W / 2, a.H / 2
}

func NewPlayer(a Arena, ch Character) *Player {
	x, y := a.Center()
	return &Player{
		Body:      Body{X: x, Y: y},
		Health:    MaxHealth,
		Character: ch,
	}
}

func NewOpponent() *Opponent {
	return &Opponent{
		Body:   Body{X: AISpawnX, Y: AISpawnY},
		Health: MaxHealth,
	}
}

// throwProgress is the 0..1 progress of the running throw animation, 0 when idle.
func (p *Player) throwProgress() float64 {
	if p.throwTimer <= 0 {
		return 0
	}
	return 1 - p.throwTimer/ThrowAnimDuration
}

// armProgress mirrors the AI's wind-up as its cooldown runs out.
func (o *Opponent) armProgress() float64 {
	cd := o.Cooldown
	if cd < 0 {
		cd = 0
	}
	return clamp(1-cd, 0, 1)
}
