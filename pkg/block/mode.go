package block

import (
	"fmt"
	"os"
)

// Mode is a block's type tag plus permission bits, laid out like st_mode.
type Mode uint32

const (
	// ModeTypeMask selects the type bits
	ModeTypeMask Mode = 0170000

	// ModeDir marks a directory block
	ModeDir Mode = 0040000

	// ModeRegular marks a regular file block
	ModeRegular Mode = 0100000

	// ModePermMask selects the permission bits
	ModePermMask Mode = 0777
)

// Type returns only the type bits.
func (m Mode) Type() Mode {
	return m & ModeTypeMask
}

// Perm returns only the permission bits.
func (m Mode) Perm() Mode {
	return m & ModePermMask
}

// IsDir reports whether m denotes a directory.
func (m Mode) IsDir() bool {
	return m.Type() == ModeDir
}

// IsRegular reports whether m denotes a regular file.
func (m Mode) IsRegular() bool {
	return m.Type() == ModeRegular
}

// IsSupported reports whether m is a type the arena can store.
func (m Mode) IsSupported() bool {
	return m.IsDir() || m.IsRegular()
}

// FileMode converts m to the os.FileMode representation.
func (m Mode) FileMode() os.FileMode {
	fm := os.FileMode(m.Perm())
	if m.IsDir() {
		fm |= os.ModeDir
	}
	return fm
}

func (m Mode) String() string {
	switch m.Type() {
	case ModeDir:
		return fmt.Sprintf("dir:%04o", uint32(m.Perm()))
	case ModeRegular:
		return fmt.Sprintf("file:%04o", uint32(m.Perm()))
	default:
		return fmt.Sprintf("unknown(%07o)", uint32(m))
	}
}
