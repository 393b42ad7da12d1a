package excel

import (
	"github.com/sirupsen/logrus"
)

var log logrus.Ext1FieldLogger = logrus.StandardLogger()

// SetLogger replaces the logger used by the package. A nil logger restores
// the logrus standard logger.
func SetLogger(l logrus.Ext1FieldLogger) {
	if l == nil {
		log = logrus.StandardLogger()
		return
	}
	log = l
}
