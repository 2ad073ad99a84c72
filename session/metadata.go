package session

import "github.com/AgustinSRG/go-rtmp-session/amf0"

// StreamMetadata holds the best-effort fields a publisher advertises
// via `@setDataFrame`/`onMetaData` (spec section 4.7, "Metadata
// tolerance"). Missing keys stay nil; unknown keys are ignored.
type StreamMetadata struct {
	VideoWidth       *uint32
	VideoHeight      *uint32
	VideoCodec       *string
	VideoFrameRate   *float32
	VideoBitrateKbps *uint32
	AudioCodec       *string
	AudioBitrateKbps *uint32
	AudioSampleRate  *uint32
	AudioChannels    *uint32
	AudioIsStereo    *bool
	Encoder          *string
}

// parseStreamMetadata coerces an AMF0 object/ECMA-array value into a
// StreamMetadata, tolerating missing and unexpected-type fields.
// Numeric fields may arrive as integer- or float-typed AMF0 Numbers;
// both coerce identically since AMF0 only has one numeric kind.
func parseStreamMetadata(v amf0.Value) StreamMetadata {
	var m StreamMetadata

	if u, ok := fieldUint32(v, "width"); ok {
		m.VideoWidth = &u
	}
	if u, ok := fieldUint32(v, "height"); ok {
		m.VideoHeight = &u
	}
	if s, ok := fieldString(v, "videocodecid"); ok {
		m.VideoCodec = &s
	}
	if f, ok := fieldFloat32(v, "framerate"); ok {
		m.VideoFrameRate = &f
	}
	if u, ok := fieldUint32(v, "videodatarate"); ok {
		m.VideoBitrateKbps = &u
	}
	if s, ok := fieldString(v, "audiocodecid"); ok {
		m.AudioCodec = &s
	}
	if u, ok := fieldUint32(v, "audiodatarate"); ok {
		m.AudioBitrateKbps = &u
	}
	if u, ok := fieldUint32(v, "audiosamplerate"); ok {
		m.AudioSampleRate = &u
	}
	if u, ok := fieldUint32(v, "audiochannels"); ok {
		m.AudioChannels = &u
	}
	if b, ok := fieldBool(v, "stereo"); ok {
		m.AudioIsStereo = &b
	}
	if s, ok := fieldString(v, "encoder"); ok {
		m.Encoder = &s
	}

	return m
}

func fieldUint32(v amf0.Value, key string) (uint32, bool) {
	field, ok := v.Field(key)
	if !ok {
		return 0, false
	}
	f, ok := field.AsFloat64()
	if !ok {
		return 0, false
	}
	return uint32(f), true
}

func fieldFloat32(v amf0.Value, key string) (float32, bool) {
	field, ok := v.Field(key)
	if !ok {
		return 0, false
	}
	f, ok := field.AsFloat64()
	if !ok {
		return 0, false
	}
	return float32(f), true
}

func fieldString(v amf0.Value, key string) (string, bool) {
	field, ok := v.Field(key)
	if !ok {
		return "", false
	}
	return field.AsString()
}

func fieldBool(v amf0.Value, key string) (bool, bool) {
	field, ok := v.Field(key)
	if !ok {
		return false, false
	}
	return field.AsBool()
}
