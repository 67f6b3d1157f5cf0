package identify

import "github.com/saturnino-fabrica-de-software/vigia/internal/domain"

// PoseBucket labels a face's horizontal orientation
type PoseBucket string

const (
	PoseFrontal      PoseBucket = "FRONTAL"
	PoseHalfLeft     PoseBucket = "HALF_LEFT"
	PoseHalfRight    PoseBucket = "HALF_RIGHT"
	PoseProfileLeft  PoseBucket = "PROFILE_LEFT"
	PoseProfileRight PoseBucket = "PROFILE_RIGHT"
	PoseUnknown      PoseBucket = "UNKNOWN"
)

// BucketPose classifies a pose by yaw angle. Boundaries are inclusive
// toward the frontal side.
func BucketPose(pose *domain.Pose) PoseBucket {
	if pose == nil || pose.Yaw == nil {
		return PoseUnknown
	}

	yaw := *pose.Yaw
	switch {
	case yaw > 40:
		return PoseProfileRight
	case yaw > 20:
		return PoseHalfRight
	case yaw >= -20:
		return PoseFrontal
	case yaw >= -40:
		return PoseHalfLeft
	default:
		return PoseProfileLeft
	}
}
