package coap

import "github.com/sirupsen/logrus"

// Log is the package-wide logger. Callers embedding this module in a larger
// service can reassign it (or call Log.SetOutput/SetLevel) before opening
// any LocalEndpoint.
var Log = logrus.StandardLogger()

func logFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}
