package notify

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestChannelNotifier_DrainInOrder(t *testing.T) {
	n := NewChannelNotifier(4)

	n.Notify("error adding product")
	n.Notify("requested quantity out of stock")

	assert.Equal(t, []string{"error adding product", "requested quantity out of stock"}, n.Drain())
	assert.Empty(t, n.Drain())
}

func TestChannelNotifier_DropsWhenFull(t *testing.T) {
	n := NewChannelNotifier(2)

	for i := 0; i < 5; i++ {
		n.Notify("msg")
	}

	assert.Len(t, n.Drain(), 2)
	assert.Equal(t, int64(3), n.Dropped())
}

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	ch := NewChannelNotifier(1)
	Multi{NewLogNotifier(logger), ch}.Notify("error removing product")

	assert.Equal(t, []string{"error removing product"}, ch.Drain())
	assert.Contains(t, buf.String(), `"msg":"error removing product"`)
	assert.Contains(t, buf.String(), `"level":"warning"`)
}
