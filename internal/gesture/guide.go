package gesture

// GuideEntry describes one gesture of the manual.
type GuideEntry struct {
	Name        string  `json:"name"`
	Pose        Pose    `json:"pose"`
	Description string  `json:"description"`
	Command     Command `json:"command"`
}

// Guide returns the gesture manual for a profile, in display order.
func Guide(p Profile) []GuideEntry {
	play := GuideEntry{
		Name:        "Play",
		Pose:        p.PlayPose(),
		Description: "Close your hand into a fist.",
		Command:     CommandPlay,
	}
	pause := GuideEntry{
		Name:        "Pause",
		Pose:        PoseThumbsDown,
		Description: "Point your thumb down.",
		Command:     CommandPause,
	}
	if p == ProfileSpotify {
		play.Description = "Show an open palm (all five fingers) while paused."
		pause.Description = "Point your thumb down while playing."
	}

	return []GuideEntry{
		play,
		pause,
		{
			Name:        "Volume mode",
			Pose:        PoseThreeFingers,
			Description: "Raise index, middle and ring fingers. Volume mode stays active for 4 seconds after the last change.",
			Command:     CommandVolumeModeOn,
		},
		{
			Name:        "Volume up (+10)",
			Pose:        PoseThumbsUp,
			Description: "In volume mode, point your thumb up.",
			Command:     CommandVolumeUp,
		},
		{
			Name:        "Volume down (-10)",
			Pose:        PoseThumbsDown,
			Description: "In volume mode, point your thumb down.",
			Command:     CommandVolumeDown,
		},
		{
			Name:        "Next track",
			Pose:        PosePeace,
			Description: "Hold a peace sign (V) and move it to the right.",
			Command:     CommandNextTrack,
		},
		{
			Name:        "Previous track",
			Pose:        PosePeace,
			Description: "Hold a peace sign (V) and move it to the left.",
			Command:     CommandPreviousTrack,
		},
	}
}
