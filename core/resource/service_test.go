package resource_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovalab/center/core/course"
	"github.com/innovalab/center/core/resource"
	inmemdb "github.com/innovalab/center/storage/database/inmem"
	"github.com/innovalab/center/testutil"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	courses := inmemdb.NewCourseRepository(db)
	svc := resource.NewService(inmemdb.NewResourceRepository(db), courses)
	crs := testutil.CreateCourse(t, courses, "Go", 100)

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	resource.NowFunc = func() time.Time { return now }
	defer func() { resource.NowFunc = time.Now }()

	tests := []struct {
		name    string
		in      resource.NewResource
		fileURL string
		wantURL string
		wantErr error
	}{
		{
			name:    "file",
			in:      resource.NewResource{Title: "Guía", Kind: resource.KindFile, ExternalURL: "https://ignored"},
			fileURL: "/uploads/guia.pdf",
			wantURL: "/uploads/guia.pdf",
		},
		{
			name:    "file missing",
			in:      resource.NewResource{Title: "Guía", Kind: resource.KindFile},
			wantErr: resource.ErrMissingFile,
		},
		{
			name:    "link",
			in:      resource.NewResource{Title: "Docs", Kind: resource.KindLink, ExternalURL: "https://go.dev/doc"},
			fileURL: "/uploads/ignored.pdf",
			wantURL: "https://go.dev/doc",
		},
		{
			name:    "link missing",
			in:      resource.NewResource{Title: "Docs", Kind: resource.KindLink},
			wantErr: resource.ErrMissingURL,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = now.Add(time.Minute)
			res, err := svc.Add(ctx, crs.ID, tt.in, tt.fileURL)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, res.URL)
		})
	}

	list, err := svc.ListByCourse(ctx, crs.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Docs", list[0].Title, "newest first")

	require.NoError(t, svc.Delete(ctx, list[0].ID))
	assert.Equal(t, resource.ErrNotFound, errors.Cause(svc.Delete(ctx, list[0].ID)))

	_, err = svc.Add(ctx, 999, tests[2].in, "")
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
}
