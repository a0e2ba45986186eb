package testutil

// Paths in the fixture returned by DiscLayout.
const (
	OpeningBanner = "opening.bnr"
	BootFile      = "sys/main.dol"
	SmallFile     = "data/small.bin" // exactly SmallSize bytes
	LargeFile     = "data/stage/level1.arc"
	EmptyDir      = "empty/"

	SmallSize = 100
	LargeSize = 64 << 10
)

// DiscLayout returns a small disc-like tree for file system tests.
func DiscLayout() map[string][]byte {
	return map[string][]byte{
		OpeningBanner: []byte("BNR1"),
		BootFile:      Pattern(4096),
		SmallFile:     Pattern(SmallSize),
		LargeFile:     Pattern(LargeSize),
		EmptyDir:      nil,

		"audio/bgm.adp": Pattern(2048),
	}
}
