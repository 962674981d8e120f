package iso9660

import "time"

// Identifier is the fixed 5-byte standard identifier present in every
// volume descriptor.
const Identifier = "CD001"

// VolumeID is the bit-exact volume identifier required on every image this
// module produces.
const VolumeID = "FULLERENE"

// BootSystemID is the fixed El Torito boot-system identifier stored in the
// Boot Record Volume Descriptor.
const BootSystemID = "EL TORITO SPECIFICATION"

const (
	vdTypePrimary     = 1
	vdTypeBootRecord  = 0
	vdTypeTerminator  = 255
	vdVersion         = 1
)

// PrimaryVolumeDescriptor holds every field of the PVD the writer needs to
// emit. The system, volume set, publisher, preparer and application ids are
// space-padded by AString and blank when left empty; the copyright, abstract
// and bibliographic file ids have no field and are left as zero bytes.
type PrimaryVolumeDescriptor struct {
	SystemID       string
	VolumeSpaceSize uint32 // total logical blocks
	PathTableSize  uint32 // bytes
	LPathTableLBA  uint32
	MPathTableLBA  uint32
	RootRecord     *DirectoryRecord

	VolumeSetID  string
	Publisher    string
	Preparer     string
	Application  string

	CreationTime time.Time
}

// ToBytes renders the 2048-byte PVD.
func (p *PrimaryVolumeDescriptor) ToBytes() ([]byte, error) {
	b := make([]byte, SectorSize)
	b[0] = vdTypePrimary
	copy(b[1:6], Identifier)
	b[6] = vdVersion

	sysID, err := AString(p.SystemID, 32)
	if err != nil {
		return nil, err
	}
	copy(b[8:40], sysID)

	volID, err := DString(VolumeID, 32)
	if err != nil {
		return nil, err
	}
	copy(b[40:72], volID)

	copy(b[80:88], Uint32Both(p.VolumeSpaceSize))
	copy(b[120:124], Uint16Both(1)) // volume set size
	copy(b[124:128], Uint16Both(1)) // volume sequence number
	copy(b[128:132], Uint16Both(SectorSize))
	copy(b[132:140], Uint32Both(p.PathTableSize))
	PutUint32LE(b[140:144], p.LPathTableLBA)
	PutUint32BE(b[148:152], p.MPathTableLBA)

	if p.RootRecord != nil {
		rr := p.RootRecord.ToBytes()
		copy(b[156:190], rr) // root directory record is always exactly 34 bytes
	}

	volSetID, err := AString(p.VolumeSetID, 128)
	if err != nil {
		return nil, err
	}
	copy(b[190:318], volSetID)

	pub, err := AString(p.Publisher, 128)
	if err != nil {
		return nil, err
	}
	copy(b[318:446], pub)

	prep, err := AString(p.Preparer, 128)
	if err != nil {
		return nil, err
	}
	copy(b[446:574], prep)

	app, err := AString(p.Application, 128)
	if err != nil {
		return nil, err
	}
	copy(b[574:702], app)

	ts := isoTimestamp(p.CreationTime)
	copy(b[813:830], ts) // creation
	copy(b[830:847], ts) // modification
	copy(b[847:864], unsetTimestamp())
	copy(b[864:881], ts) // effective

	b[881] = 1 // file structure version
	return b, nil
}

// isoTimestamp renders the 17-byte ASCII "YYYYMMDDHHMMSSHH" + GMT-offset
// form used by PVD timestamp fields.
func isoTimestamp(t time.Time) []byte {
	if t.IsZero() {
		return unsetTimestamp()
	}
	u := t.UTC()
	s := u.Format("20060102150405") + "00"
	b := make([]byte, 17)
	copy(b, s)
	b[16] = 0
	return b
}

func unsetTimestamp() []byte {
	b := make([]byte, 17)
	for i := 0; i < 16; i++ {
		b[i] = '0'
	}
	b[16] = 0
	return b
}

// BootRecordVolumeDescriptor is the El Torito Boot Record VD.
type BootRecordVolumeDescriptor struct {
	BootCatalogLBA uint32
}

// ToBytes renders the 2048-byte Boot Record VD.
func (r *BootRecordVolumeDescriptor) ToBytes() []byte {
	b := make([]byte, SectorSize)
	b[0] = vdTypeBootRecord
	copy(b[1:6], Identifier)
	b[6] = vdVersion
	bsID, _ := AString(BootSystemID, 32)
	copy(b[7:39], bsID)
	PutUint32LE(b[71:75], r.BootCatalogLBA)
	return b
}

// TerminatorVolumeDescriptor is the Volume Descriptor Set Terminator.
func TerminatorVolumeDescriptor() []byte {
	b := make([]byte, SectorSize)
	b[0] = vdTypeTerminator
	copy(b[1:6], Identifier)
	b[6] = vdVersion
	return b
}
