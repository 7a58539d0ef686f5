// Package snapshot stores copies of a sequence's values in S3 so they can be
// rebuilt later with lists.FromSlice. The sequence itself is never persisted.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/inconshreveable/log15"

	"seqlib/config"
	"seqlib/lists"
)

var ErrDisabled = errors.New("snapshot: no bucket configured")

type Snapshot struct {
	List    string    `json:"list"`
	Kind    string    `json:"kind"`
	TakenAt time.Time `json:"taken_at"`
	Values  []string  `json:"values"`
}

// Restore rebuilds the sequence recorded in s.
func (s *Snapshot) Restore() (lists.Sequence[string], error) {
	kind, err := lists.ParseKind(s.Kind)
	if err != nil {
		return nil, err
	}
	return lists.FromSlice(kind, s.Values)
}

type Exporter struct {
	client s3iface.S3API
	bucket string
	prefix string
	logger log15.Logger
	now    func() time.Time
}

func NewS3Client(cfg config.S3Config) (s3iface.S3API, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("snapshot: aws session: %w", err)
	}
	return s3.New(sess), nil
}

func NewExporter(client s3iface.S3API, bucket, prefix string, logger log15.Logger) *Exporter {
	return &Exporter{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.New("component", "snapshot"),
		now:    time.Now,
	}
}

// Export uploads the values of seq under <prefix>/<name>/<uuid>.json and
// returns the object key.
func (e *Exporter) Export(ctx context.Context, name string, seq lists.Sequence[string]) (string, error) {
	if e == nil || e.bucket == "" {
		return "", ErrDisabled
	}

	snap := Snapshot{
		List:    name,
		Kind:    seq.Kind().String(),
		TakenAt: e.now().UTC(),
		Values:  seq.Values(),
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("snapshot: encode %q: %w", name, err)
	}

	key := path.Join(e.prefix, name, uuid.NewString()+".json")
	_, err = e.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("snapshot: upload %s: %w", key, err)
	}

	e.logger.Debug("Snapshot stored", "list", name, "key", key, "length", len(snap.Values))
	return key, nil
}

func (e *Exporter) Load(ctx context.Context, key string) (*Snapshot, error) {
	if e == nil || e.bucket == "" {
		return nil, ErrDisabled
	}

	out, err := e.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: download %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", key, err)
	}
	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", key, err)
	}
	return snap, nil
}
