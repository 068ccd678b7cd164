package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ajitpratap0/objectdag/pkg/errors"
	json "github.com/ajitpratap0/objectdag/pkg/json"
	"github.com/ajitpratap0/objectdag/pkg/models"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// TransportSuite checks the behaviour every readable transport shares.
// Embed it and set New before the suite runs:
//
//	func TestDiskTransport(t *testing.T) {
//	    suite.Run(t, &testutil.TransportSuite{New: func(t *testing.T) core.ReadTransport {
//	        return disk.New("disk", afero.NewMemMapFs(), disk.DefaultPrefix, nil)
//	    }})
//	}
type TransportSuite struct {
	suite.Suite

	// New builds a fresh transport for each test
	New func(t *testing.T) core.ReadTransport

	ctx       context.Context
	cancel    context.CancelFunc
	transport core.ReadTransport
}

// SetupTest creates a transport and a context for one test.
func (s *TransportSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), time.Minute)
	s.transport = s.New(s.T())
}

// TearDownTest closes the transport.
func (s *TransportSuite) TearDownTest() {
	if c, ok := s.transport.(core.Closer); ok {
		s.NoError(c.Close(s.ctx))
	}
	s.cancel()
}

// Transport returns the transport under test.
func (s *TransportSuite) Transport() core.ReadTransport {
	return s.transport
}

func (s *TransportSuite) TestSaveThenGet() {
	rec := SampleRecord(s.T(), "hello")

	s.Require().NoError(s.transport.SaveObject(s.ctx, rec))

	data, err := s.transport.GetObject(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(string(rec.JSON), string(data))
}

func (s *TransportSuite) TestSaveIsIdempotent() {
	rec := SampleRecord(s.T(), "twice")

	s.Require().NoError(s.transport.SaveObject(s.ctx, rec))
	s.Require().NoError(s.transport.SaveObject(s.ctx, rec))

	data, err := s.transport.GetObject(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(string(rec.JSON), string(data))
}

func (s *TransportSuite) TestGetMissing() {
	_, err := s.transport.GetObject(s.ctx, "0123456789abcdef0123456789abcdef")
	s.Require().Error(err)
	s.True(errors.IsNotFound(err), "expected not found, got %v", err)
}

func (s *TransportSuite) TestManyRecords() {
	ids := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		rec := SampleRecord(s.T(), string(rune('a'+i)))
		s.Require().NoError(s.transport.SaveObject(s.ctx, rec))
		ids = append(ids, rec.ID)
	}
	for _, id := range ids {
		_, err := s.transport.GetObject(s.ctx, id)
		s.NoError(err)
	}
}

// SampleRecord builds a small leaf record named name, the way the
// serializer would.
func SampleRecord(t testing.TB, name string) *core.Record {
	t.Helper()

	body := json.NewMap()
	body.Set(models.TypeKey, models.BaseType)
	body.Set("name", name)
	body.Set(models.TotalChildrenCountKey, 0)
	hashed, err := json.Canonical(body)
	require.NoError(t, err)
	id := json.ContentID(hashed)

	fields := json.NewMap()
	fields.Set(models.TypeKey, models.BaseType)
	fields.Set("name", name)
	fields.Set(models.IDKey, id)
	fields.Set(models.TotalChildrenCountKey, 0)
	data, err := json.Canonical(fields)
	require.NoError(t, err)

	return &core.Record{ID: id, Fields: fields, JSON: data}
}

// IntegrationTest skips the test in short mode or when the environment
// variable env, which holds the service address, is unset. It returns
// the address.
func IntegrationTest(t *testing.T, env string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	addr := os.Getenv(env)
	if addr == "" {
		t.Skipf("Skipping integration test: %s is not set", env)
	}
	return addr
}
