package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_PostAndCancel(t *testing.T) {
	n := NewNotifier()

	var a, b []Interruption
	cancelA := n.Subscribe(func(i Interruption) { a = append(a, i) })
	n.Subscribe(func(i Interruption) { b = append(b, i) })

	n.Post(Interruption{Type: InterruptionBegan})
	cancelA()
	n.Post(Interruption{Type: InterruptionEnded, HasOptions: true, ShouldResume: true})

	assert.Len(t, a, 1)
	assert.Len(t, b, 2)
	assert.Equal(t, InterruptionEnded, b[1].Type)
	assert.True(t, b[1].ShouldResume)
}

func TestInterruptionType_String(t *testing.T) {
	assert.Equal(t, "began", InterruptionBegan.String())
	assert.Equal(t, "ended", InterruptionEnded.String())
}
