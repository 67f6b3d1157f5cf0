package identify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
	}{
		{name: "already unit", in: []float32{1, 0, 0}},
		{name: "needs scaling", in: []float32{3, 4}},
		{name: "negative components", in: []float32{-2, 5, -7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize(tt.in)

			var norm float64
			for _, v := range out {
				norm += float64(v) * float64(v)
			}
			assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
		})
	}

	t.Run("zero vector is returned unchanged", func(t *testing.T) {
		out := Normalize([]float32{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, out)
	})
}

func TestCosineDistance(t *testing.T) {
	a := Normalize([]float32{0.3, -0.1, 0.9, 0.2})
	neg := make([]float32, len(a))
	for i, v := range a {
		neg[i] = -v
	}

	tests := []struct {
		name  string
		a, b  []float32
		want  float64
		delta float64
	}{
		{name: "identical vectors", a: a, b: a, want: 0, delta: 1e-6},
		{name: "opposite vectors", a: a, b: neg, want: 2, delta: 1e-6},
		{name: "orthogonal vectors", a: []float32{1, 0}, b: []float32{0, 1}, want: 1, delta: 1e-6},
		{name: "zero vector sentinel", a: []float32{0, 0}, b: []float32{1, 0}, want: 1, delta: 0},
		{name: "length mismatch sentinel", a: []float32{1, 0}, b: []float32{1, 0, 0}, want: 1, delta: 0},
		{name: "empty sentinel", a: nil, b: nil, want: 1, delta: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineDistance(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, tt.delta)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 2.0)
		})
	}
}

func TestBucketPose(t *testing.T) {
	yaw := func(v float64) *domain.Pose { return &domain.Pose{Yaw: &v} }

	tests := []struct {
		name string
		pose *domain.Pose
		want PoseBucket
	}{
		{name: "nil pose", pose: nil, want: PoseUnknown},
		{name: "missing yaw", pose: &domain.Pose{}, want: PoseUnknown},
		{name: "far right profile", pose: yaw(41), want: PoseProfileRight},
		{name: "right profile boundary stays half", pose: yaw(40), want: PoseHalfRight},
		{name: "half right", pose: yaw(21), want: PoseHalfRight},
		{name: "frontal upper boundary", pose: yaw(20), want: PoseFrontal},
		{name: "straight on", pose: yaw(0), want: PoseFrontal},
		{name: "frontal lower boundary", pose: yaw(-20), want: PoseFrontal},
		{name: "half left", pose: yaw(-21), want: PoseHalfLeft},
		{name: "left profile boundary stays half", pose: yaw(-40), want: PoseHalfLeft},
		{name: "far left profile", pose: yaw(-41), want: PoseProfileLeft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketPose(tt.pose))
		})
	}
}
