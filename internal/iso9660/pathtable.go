package iso9660

// PathTableEntry is one row of a path table: a directory's identifier, its
// extent LBA, and the 1-based index of its parent directory within the same
// table (root's own parent index is 1).
type PathTableEntry struct {
	Identifier  string // "\x00" for root
	LBA         uint32
	ParentIndex uint16
}

// BuildPathTable walks dir breadth-first starting at root (whose parent
// index is always 1) and returns the entries in the order path tables
// require: parent before any of its children, siblings in SortedChildren
// (name) order.
func BuildPathTable(root *Node, rootLBA uint32) []PathTableEntry {
	entries := []PathTableEntry{{Identifier: "\x00", LBA: rootLBA, ParentIndex: 1}}

	type queued struct {
		node  *Node
		index uint16 // 1-based index of this directory within entries
	}
	queue := []queued{{node: root, index: 1}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.node.Dir == nil {
			continue
		}
		for _, child := range SortedChildren(cur.node.Dir) {
			if child.Dir == nil {
				continue
			}
			entries = append(entries, PathTableEntry{
				Identifier:  child.Name,
				LBA:         child.LBA,
				ParentIndex: cur.index,
			})
			queue = append(queue, queued{node: child, index: uint16(len(entries))})
		}
	}
	return entries
}

// ToLBytes renders entries as an L-type (little-endian) path table.
func ToLBytes(entries []PathTableEntry) []byte {
	return toPathTableBytes(entries, false)
}

// ToMBytes renders entries as an M-type (big-endian) path table.
func ToMBytes(entries []PathTableEntry) []byte {
	return toPathTableBytes(entries, true)
}

func toPathTableBytes(entries []PathTableEntry, big bool) []byte {
	var out []byte
	for _, e := range entries {
		id := []byte(e.Identifier)
		nameLen := len(id)
		recLen := 8 + nameLen
		pad := nameLen % 2
		rec := make([]byte, recLen+pad)
		rec[0] = byte(nameLen)
		rec[1] = 0 // extended attribute length
		if big {
			PutUint32BE(rec[2:6], e.LBA)
			PutUint16BE(rec[6:8], e.ParentIndex)
		} else {
			PutUint32LE(rec[2:6], e.LBA)
			PutUint16LE(rec[6:8], e.ParentIndex)
		}
		copy(rec[8:8+nameLen], id)
		out = append(out, rec...)
	}
	return out
}
