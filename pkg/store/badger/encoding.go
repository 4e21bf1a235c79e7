package badger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/peerdrive/peerdrive/pkg/store"
)

// Database key namespace design.
//
// One badger database holds every locally available drive. Prefixed keys
// separate the record types and make range scans over one drive's namespace
// cheap:
//
//	Data Type      Prefix  Key Format                     Value
//	=============================================================
//	Drive Record   "d:"    d:<identityKey>                driveRecord (JSON)
//	Node Record    "n:"    n:<identityKey>:<path>         nodeRecord (JSON)
//	Payload Chunk  "c:"    c:<identityKey>:<path>:<idx>   raw bytes
//
// The chunk index is big-endian fixed width so chunks iterate in order.
// Paths may contain ':'; that is safe because the identity key is fixed
// width and the chunk index is always the trailing 4 bytes.

const (
	prefixDrive = "d:"
	prefixNode  = "n:"
	prefixChunk = "c:"
)

// chunkSize is the payload split size. Kept well under badger's value log
// entry limit.
const chunkSize = 256 << 10

// driveRecord marks an identity key as locally available.
type driveRecord struct {
	CreatedAtUnix int64 `json:"created_at"`
}

// nodeRecord is the stored metadata of one entry.
type nodeRecord struct {
	Kind       store.NodeKind `json:"kind"`
	Size       uint64         `json:"size"`
	UID        uint32         `json:"uid"`
	GID        uint32         `json:"gid"`
	Mode       uint32         `json:"mode"`
	LinkTarget string         `json:"link_target,omitempty"`
}

func keyDrive(id store.Key) []byte {
	return []byte(prefixDrive + id.String())
}

func keyNode(id store.Key, path string) []byte {
	return []byte(prefixNode + id.String() + ":" + path)
}

// keyNodePrefix scans every node of one drive.
func keyNodePrefix(id store.Key) []byte {
	return []byte(prefixNode + id.String() + ":")
}

func keyChunk(id store.Key, path string, idx uint32) []byte {
	k := []byte(prefixChunk + id.String() + ":" + path + ":")
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], idx)
	return append(k, buf[:]...)
}

func encodeDriveRecord(r *driveRecord) ([]byte, error) {
	return json.Marshal(r)
}

func encodeNodeRecord(r *nodeRecord) ([]byte, error) {
	return json.Marshal(r)
}

func decodeNodeRecord(val []byte) (*nodeRecord, error) {
	var r nodeRecord
	if err := json.Unmarshal(val, &r); err != nil {
		return nil, fmt.Errorf("decoding node record: %w", err)
	}
	return &r, nil
}

// chunkCount returns how many chunks a payload of size bytes occupies.
func chunkCount(size uint64) uint32 {
	if size == 0 {
		return 0
	}
	return uint32((size + chunkSize - 1) / chunkSize)
}
