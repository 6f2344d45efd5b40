package types

import "github.com/sirupsen/logrus"

// Logger is the leveled logging contract every core component is built
// against. It is exactly logrus.FieldLogger's method set: go-mcast's own
// hand-rolled Logger interface (Info/Infof/Warn/Warnf/Error/Errorf/
// Debug/Debugf/Fatal/Fatalf/Panic/Panicf) already matches it, so instead
// of carrying that wrapper forward we alias the real thing.
type Logger = logrus.FieldLogger
