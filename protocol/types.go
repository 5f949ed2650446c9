package protocol

// Kind identifies which handler an inbound envelope belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindRegister
	KindStart
	KindMove
)

func (k Kind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindStart:
		return "start"
	case KindMove:
		return "move"
	default:
		return "unknown"
	}
}

// parseKind maps the optional "type" discriminator to a Kind.
func parseKind(s string) Kind {
	switch s {
	case "register":
		return KindRegister
	case "start":
		return KindStart
	case "move":
		return KindMove
	default:
		return KindUnknown
	}
}

// DefaultSecondsPerTurn is used when a start request omits seconds_per_turn.
const DefaultSecondsPerTurn = 2.0

// Draw is the winner value broadcast when a game ends without a winner.
const Draw = "draw"

// Envelope is a decoded inbound frame. Exactly one payload field is set,
// matching Kind.
type Envelope struct {
	Kind     Kind
	Register *Register
	Start    *StartRequest
	Move     *Move
}

// Register asks the server to bind a name to the sending connection.
type Register struct {
	Name string `json:"name"`
}

// StartRequest asks the server to pair two registered clients.
// SecondsPerTurn is nil when the request did not specify a budget.
type StartRequest struct {
	White          string   `json:"white"`
	Black          string   `json:"black"`
	SecondsPerTurn *float64 `json:"seconds_per_turn,omitempty"`
}

// Move is a single move submission. It is also the frame relayed to the
// opponent and the viewer.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Transform string `json:"transform,omitempty"`
}

// Registered acknowledges a successful registration to the registering client.
type Registered struct {
	Registered string `json:"registered"`
}

// Roster is sent to the viewer whenever the set of registered players changes.
type Roster struct {
	Names []string `json:"names"`
}

// StartNotice tells a participant that a game has started and which color it plays.
type StartNotice struct {
	Color          string  `json:"color"`
	SecondsPerTurn float64 `json:"seconds_per_turn"`
	Opponent       string  `json:"opponent"`
}

// Outcome is the terminal broadcast of a session. Winner is a client name or Draw.
type Outcome struct {
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

// Connection is one duplex message channel to a remote client.
// Send must not block; a full or closed connection reports an error.
type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Handler consumes inbound frames and connection closure events.
type Handler interface {
	HandleMessage(conn Connection, data []byte)
	HandleDisconnect(conn Connection)
}
