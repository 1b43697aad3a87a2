package resources

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/wbrown/piecewise"
	"github.com/wbrown/piecewise/internal/logger"
)

// ModelMagic opens every flat model file.
const ModelMagic = "PWV1"

// headerSize covers the magic and six little-endian 32-bit fields.
const headerSize = 4 + 6*4

var (
	ErrInvalidModel   = errors.New("resources: invalid model")
	ErrTruncatedModel = errors.New("resources: truncated model")
	ErrBadMagic       = errors.New("resources: bad model magic")
)

// Model is a vocabulary in the flat layout used by SortedStringsTable:
// pieces sorted by bytes, concatenated, with numPieces+1 offsets.
type Model struct {
	Config              piecewise.EncoderConfig
	LinearScanThreshold int
	Offsets             []uint32
	Scores              []float32
	Pieces              []byte
	// SourceIDs maps each sorted id to the id it had in the model it was
	// converted from. It is not persisted.
	SourceIDs []int

	closer func() error
}

// NewModel lays out pieces in ascending byte order. pieces and scores must
// have the same length and pieces must be unique.
func NewModel(pieces [][]byte, scores []float32,
	config *piecewise.EncoderConfig) (*Model, error) {
	if len(pieces) != len(scores) {
		return nil, fmt.Errorf("%w: %d pieces and %d scores",
			ErrInvalidModel, len(pieces), len(scores))
	}
	if config == nil {
		config = piecewise.DefaultEncoderConfig()
	}
	order := sortedOrder(pieces)
	model := &Model{
		Config:              *config,
		LinearScanThreshold: piecewise.DefaultLinearScanThreshold,
		Offsets:             make([]uint32, 0, len(pieces)+1),
		Scores:              make([]float32, 0, len(pieces)),
		SourceIDs:           order,
	}
	buf := make([]byte, 0)
	for _, id := range order {
		model.Offsets = append(model.Offsets, uint32(len(buf)))
		buf = append(buf, pieces[id]...)
		model.Scores = append(model.Scores, scores[id])
	}
	model.Offsets = append(model.Offsets, uint32(len(buf)))
	model.Pieces = buf
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}

// sortedOrder returns the indexes of pieces in ascending byte order.
func sortedOrder(pieces [][]byte) []int {
	order := make([]int, len(pieces))
	for idx := range order {
		order[idx] = idx
	}
	sort.SliceStable(order, func(i, j int) bool {
		return bytes.Compare(pieces[order[i]], pieces[order[j]]) < 0
	})
	return order
}

func (model *Model) NumPieces() int {
	return len(model.Scores)
}

// Validate checks the layout invariants SortedStringsTable relies on.
func (model *Model) Validate() error {
	n := len(model.Scores)
	if len(model.Offsets) != n+1 {
		return fmt.Errorf("%w: %d offsets for %d pieces",
			ErrInvalidModel, len(model.Offsets), n)
	}
	if model.Offsets[0] != 0 {
		return fmt.Errorf("%w: first offset is %d", ErrInvalidModel,
			model.Offsets[0])
	}
	if int(model.Offsets[n]) != len(model.Pieces) {
		return fmt.Errorf("%w: offsets end at %d, piece data is %d bytes",
			ErrInvalidModel, model.Offsets[n], len(model.Pieces))
	}
	if model.LinearScanThreshold < 0 {
		return fmt.Errorf("%w: negative linear scan threshold %d",
			ErrInvalidModel, model.LinearScanThreshold)
	}
	var prev []byte
	for id := 0; id < n; id++ {
		if model.Offsets[id+1] < model.Offsets[id] ||
			int(model.Offsets[id+1]) > len(model.Pieces) {
			return fmt.Errorf("%w: bad offsets at piece %d",
				ErrInvalidModel, id)
		}
		piece := model.Pieces[model.Offsets[id]:model.Offsets[id+1]]
		if id > 0 && bytes.Compare(prev, piece) >= 0 {
			return fmt.Errorf("%w: piece %d %q does not sort after %q",
				ErrInvalidModel, id, piece, prev)
		}
		prev = piece
		score := float64(model.Scores[id])
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return fmt.Errorf("%w: piece %d has score %v", ErrInvalidModel,
				id, score)
		}
	}
	lo := int64(model.Config.EncodingOffset)
	hi := lo + int64(n)
	for _, code := range []int32{model.Config.StartCode, model.Config.EndCode} {
		if int64(code) >= lo && int64(code) < hi {
			return fmt.Errorf("%w: sentinel code %d collides with piece codes [%d, %d)",
				ErrInvalidModel, code, lo, hi)
		}
	}
	return nil
}

// Table returns a SortedStringsTable borrowing the model's buffers.
func (model *Model) Table() *piecewise.SortedStringsTable {
	return piecewise.NewSortedStringsTable(model.NumPieces(), model.Offsets,
		model.Pieces, model.LinearScanThreshold)
}

func (model *Model) NewEncoder() (*piecewise.Encoder, error) {
	return piecewise.NewEncoder(model.Table(), model.NumPieces(), model.Scores,
		&model.Config)
}

func (model *Model) Vocabulary() *piecewise.Vocabulary {
	return piecewise.NewVocabulary(model.Table(), model.Scores, &model.Config)
}

// Close releases the mapping behind a loaded model. The model and anything
// built from it must not be used afterwards.
func (model *Model) Close() error {
	if model.closer == nil {
		return nil
	}
	closer := model.closer
	model.closer = nil
	return closer()
}

// ParseModel decodes a flat model. The piece bytes are borrowed from data.
func ParseModel(data []byte) (*Model, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d byte header", ErrTruncatedModel,
			len(data))
	}
	if string(data[:4]) != ModelMagic {
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, data[:4])
	}
	le := binary.LittleEndian
	numPieces := uint64(le.Uint32(data[4:]))
	model := &Model{
		Config: piecewise.EncoderConfig{
			StartCode:      int32(le.Uint32(data[8:])),
			EndCode:        int32(le.Uint32(data[12:])),
			EncodingOffset: int32(le.Uint32(data[16:])),
		},
		LinearScanThreshold: int(le.Uint32(data[20:])),
	}
	piecesLen := uint64(le.Uint32(data[24:]))

	need := uint64(headerSize) + (numPieces+1)*4 + numPieces*4 + piecesLen
	if uint64(len(data)) < need {
		return nil, fmt.Errorf("%w: need %d bytes, have %d",
			ErrTruncatedModel, need, len(data))
	}
	if uint64(len(data)) > need {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidModel,
			uint64(len(data))-need)
	}

	pos := headerSize
	model.Offsets = make([]uint32, numPieces+1)
	for idx := range model.Offsets {
		model.Offsets[idx] = le.Uint32(data[pos:])
		pos += 4
	}
	model.Scores = make([]float32, numPieces)
	for idx := range model.Scores {
		model.Scores[idx] = math.Float32frombits(le.Uint32(data[pos:]))
		pos += 4
	}
	model.Pieces = data[pos : pos+int(piecesLen)]
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}

// WriteModel serializes model in the flat layout.
func WriteModel(w io.Writer, model *Model) error {
	if err := model.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	le := binary.LittleEndian
	header := make([]byte, headerSize)
	copy(header, ModelMagic)
	le.PutUint32(header[4:], uint32(model.NumPieces()))
	le.PutUint32(header[8:], uint32(model.Config.StartCode))
	le.PutUint32(header[12:], uint32(model.Config.EndCode))
	le.PutUint32(header[16:], uint32(model.Config.EncodingOffset))
	le.PutUint32(header[20:], uint32(model.LinearScanThreshold))
	le.PutUint32(header[24:], uint32(len(model.Pieces)))
	if _, err := bw.Write(header); err != nil {
		return err
	}
	word := make([]byte, 4)
	for _, offset := range model.Offsets {
		le.PutUint32(word, offset)
		if _, err := bw.Write(word); err != nil {
			return err
		}
	}
	for _, score := range model.Scores {
		le.PutUint32(word, math.Float32bits(score))
		if _, err := bw.Write(word); err != nil {
			return err
		}
	}
	if _, err := bw.Write(model.Pieces); err != nil {
		return err
	}
	return bw.Flush()
}

// SaveModel writes model to path.
func SaveModel(path string, model *Model) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteModel(file, model); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// LoadModel maps the model file at path into memory. Close the model to
// release the mapping.
func LoadModel(path string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, release, err := readMmap(file)
	if err != nil {
		return nil, fmt.Errorf("error trying to mmap %s: %w", path, err)
	}
	model, err := ParseModel(data)
	if err != nil {
		_ = release()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	model.closer = release
	logger.New("resources").Info("loaded model", "path", path,
		"pieces", model.NumPieces(),
		"size", humanize.Bytes(uint64(len(data))))
	return model, nil
}
