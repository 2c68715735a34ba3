package ids

import "github.com/google/uuid"

// Generator produces identifiers for connections and token jtis. An interface
// so deployments needing sortable ids (Snowflake/ULID) can swap one in.
type Generator interface {
	New() string
}

// UUIDGen is the default generator.
type UUIDGen struct{}

func (UUIDGen) New() string { return uuid.NewString() }

var defaultGen Generator = UUIDGen{}

// SetGenerator replaces the default generator; call once from main before
// serving.
func SetGenerator(g Generator) {
	if g != nil {
		defaultGen = g
	}
}

// GenerateString returns a fresh unique id.
func GenerateString() string {
	return defaultGen.New()
}
