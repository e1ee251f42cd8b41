package esm

import (
	"time"

	"github.com/epccore/mme-core/pkg/nas"
)

// Outcome mirrors pkg/emm's procedure outcome shape, scoped to one EBI.
type Outcome struct {
	Reply *nas.Message
	Done  bool
}

// Procedure is the capability set every ESM procedure implements, analogous
// to pkg/emm.Procedure but keyed by EBI rather than nested inside an EMM
// stack.
type Procedure interface {
	Name() string
	Filter() map[nas.Kind]bool
	Process(m *nas.Message) (Outcome, error)
	Abort()
	Timer() time.Duration
}
