package notes

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// ErrNoteNotFound is returned, wrapped with the note id, when no note has that id.
var ErrNoteNotFound = errors.New("note not found")

// API is the subset of the DynamoDB client used by Store.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Store persists notes in a single DynamoDB table keyed by id.
type Store struct {
	client API
	table  string
	now    func() time.Time

	pollAttempts uint
	pollInterval time.Duration
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithTablePolling sets how EnsureTable waits for a new table to become active.
func WithTablePolling(attempts uint, interval time.Duration) Option {
	return func(s *Store) {
		s.pollAttempts = attempts
		s.pollInterval = interval
	}
}

func NewStore(client API, table string, opts ...Option) *Store {
	s := &Store{
		client:       client,
		table:        table,
		now:          time.Now,
		pollAttempts: 30,
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the name of the backing table.
func (s *Store) Table() string {
	return s.table
}

func (s *Store) Create(ctx context.Context, in NoteCreate) (Note, error) {
	if err := in.Validate(); err != nil {
		return Note{}, err
	}

	now := s.now().UTC()
	note := Note{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Content:   in.Content,
		Tags:      in.Tags,
		Completed: in.Completed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	normalize(&note)

	item, err := attributevalue.MarshalMap(note)
	if err != nil {
		return Note{}, errors.Wrap(err, "failed to marshal note")
	}
	if _, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return Note{}, errors.Wrap(err, "failed to put note")
	}

	log.Debug().Str("id", note.ID).Msg("Note created")
	return note, nil
}

func (s *Store) Get(ctx context.Context, id string) (Note, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       key(id),
	})
	if err != nil {
		return Note{}, errors.Wrapf(err, "failed to get note %q", id)
	}
	if len(out.Item) == 0 {
		return Note{}, errors.Wrapf(ErrNoteNotFound, "note %q", id)
	}
	return decode(out.Item)
}

// List returns up to limit notes, newest first. A non-positive limit means DefaultListLimit.
func (s *Store) List(ctx context.Context, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
		Limit:     aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan notes")
	}
	notes, err := decodeAll(out.Items)
	if err != nil {
		return nil, err
	}
	newestFirst(notes)
	return notes, nil
}

// Update writes the fields present in u. An empty update returns the stored note unchanged.
func (s *Store) Update(ctx context.Context, id string, u NoteUpdate) (Note, error) {
	if err := u.Validate(); err != nil {
		return Note{}, err
	}
	if u.Empty() {
		return s.Get(ctx, id)
	}

	fields := map[string]any{"updated_at": s.now().UTC()}
	if u.Title != nil {
		fields["title"] = *u.Title
	}
	if u.Content != nil {
		fields["content"] = *u.Content
	}
	if u.Tags != nil {
		tags := *u.Tags
		if tags == nil {
			tags = []string{}
		}
		fields["tags"] = tags
	}
	if u.Completed != nil {
		fields["completed"] = *u.Completed
	}

	names := make(map[string]string, len(fields)+1)
	values := make(map[string]types.AttributeValue, len(fields))
	assignments := make([]string, 0, len(fields))
	for _, field := range sortedKeys(fields) {
		value, err := attributevalue.Marshal(fields[field])
		if err != nil {
			return Note{}, errors.Wrapf(err, "failed to marshal %s", field)
		}
		names["#"+field] = field
		values[":"+field] = value
		assignments = append(assignments, "#"+field+" = :"+field)
	}
	names["#id"] = "id"

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(id),
		UpdateExpression:          aws.String("SET " + strings.Join(assignments, ", ")),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return Note{}, errors.Wrapf(ErrNoteNotFound, "note %q", id)
		}
		return Note{}, errors.Wrapf(err, "failed to update note %q", id)
	}
	return decode(out.Attributes)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(s.table),
		Key:                      key(id),
		ConditionExpression:      aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	})
	if err != nil {
		if isConditionFailed(err) {
			return errors.Wrapf(ErrNoteNotFound, "note %q", id)
		}
		return errors.Wrapf(err, "failed to delete note %q", id)
	}
	log.Debug().Str("id", id).Msg("Note deleted")
	return nil
}

// ByTag returns every note carrying tag, newest first.
func (s *Store) ByTag(ctx context.Context, tag string) ([]Note, error) {
	var (
		notes []Note
		start map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(s.table),
			FilterExpression:          aws.String("contains(#tags, :tag)"),
			ExpressionAttributeNames:  map[string]string{"#tags": "tags"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":tag": &types.AttributeValueMemberS{Value: tag}},
			ExclusiveStartKey:         start,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to scan notes tagged %q", tag)
		}
		page, err := decodeAll(out.Items)
		if err != nil {
			return nil, err
		}
		notes = append(notes, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		start = out.LastEvaluatedKey
	}
	if notes == nil {
		notes = []Note{}
	}
	newestFirst(notes)
	return notes, nil
}

// Ping reads at most one item to prove the table is reachable, returning how many it saw.
func (s *Store) Ping(ctx context.Context) (int, error) {
	out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
		Limit:     aws.Int32(1),
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to reach notes table")
	}
	return len(out.Items), nil
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func decode(item map[string]types.AttributeValue) (Note, error) {
	var note Note
	if err := attributevalue.UnmarshalMap(item, &note); err != nil {
		return Note{}, errors.Wrap(err, "failed to unmarshal note")
	}
	normalize(&note)
	return note, nil
}

func decodeAll(items []map[string]types.AttributeValue) ([]Note, error) {
	notes := make([]Note, 0, len(items))
	for _, item := range items {
		note, err := decode(item)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

func newestFirst(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
