package gesture

// Command is a discrete action produced by the controller.
type Command string

const (
	CommandNone          Command = ""
	CommandPlay          Command = "play"
	CommandPause         Command = "pause"
	CommandVolumeUp      Command = "volume_up"
	CommandVolumeDown    Command = "volume_down"
	CommandNextTrack     Command = "next_track"
	CommandPreviousTrack Command = "previous_track"
	CommandVolumeModeOn  Command = "volume_mode_on"
	CommandVolumeModeOff Command = "volume_mode_off"
)

// Commands lists every non-empty command.
var Commands = []Command{
	CommandPlay,
	CommandPause,
	CommandVolumeUp,
	CommandVolumeDown,
	CommandNextTrack,
	CommandPreviousTrack,
	CommandVolumeModeOn,
	CommandVolumeModeOff,
}

// Labels shown on the HUD.
const (
	LabelVolumeModeOff = "Volume Mode OFF"
	LabelVolumeModeOn  = "Volume Mode ON"
	LabelVolumeMode    = "VOL MODE"
	LabelPlay          = "PLAY"
	LabelPause         = "PAUSE"
	LabelNextTrack     = "NEXT TRACK"
	LabelPreviousTrack = "PREV TRACK"
	LabelReadyToSwipe  = "Ready to Swipe"
	LabelSwipeDone     = "Swipe Done"
)
