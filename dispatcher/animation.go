package dispatcher

import (
	"sort"

	"github.com/pngine/pngine/bytecode"
)

// SelectScene picks the #frame active at tMillis among scenes, which must
// be sorted ascending by StartMillis (the emitter writes #animation
// declarations in source order, and source order is the declaration order
// spec.md §4.6 requires for binary search). Returns ok=false when no scene
// covers tMillis (past the last scene's end with endBehavior=stop, or a gap
// no scene spans).
func SelectScene(scenes []bytecode.AnimationScene, tMillis uint32) (frameID uint16, ok bool) {
	if len(scenes) == 0 {
		return 0, false
	}
	last := scenes[len(scenes)-1]
	t := tMillis
	if t >= last.EndMillis {
		switch last.EndBehavior {
		case bytecode.EndBehaviorStop:
			return 0, false
		case bytecode.EndBehaviorHold:
			return last.FrameID, true
		case bytecode.EndBehaviorLoop:
			first := scenes[0].StartMillis
			total := last.EndMillis - first
			if total == 0 {
				return 0, false
			}
			t = first + (t-first)%total
		}
	}

	// Narrow to the last scene whose StartMillis <= t...
	idx := sort.Search(len(scenes), func(i int) bool { return scenes[i].StartMillis > t }) - 1
	if idx < 0 {
		return 0, false
	}
	// ...then walk back over any ties on StartMillis so an exact boundary
	// hit resolves to the earlier-declared scene, per spec.md §8 Scenario 6.
	for idx > 0 && scenes[idx-1].StartMillis == scenes[idx].StartMillis {
		idx--
	}
	if t < scenes[idx].EndMillis {
		return scenes[idx].FrameID, true
	}
	return 0, false
}
