package transformers_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-kernel/framework/transformers"
)

func TestParse(t *testing.T) {
	catalog := featureFlags{"billing": false}

	tests := []struct {
		name      string
		decl      transformers.Declaration
		catalog   transformers.FeatureChecker
		want      transformers.Metadata
		wantField string
	}{
		{
			name: "defaults priority",
			decl: transformers.Declaration{Source: orderType, Target: invoiceType},
			want: transformers.Metadata{Source: orderType, Target: invoiceType, Priority: transformers.DefaultPriority},
		},
		{
			name: "keeps explicit priority and trims feature",
			decl: transformers.Declaration{Source: orderType, Target: invoiceType, Priority: 10, Feature: " billing "},
			want: transformers.Metadata{Source: orderType, Target: invoiceType, Priority: 10, Feature: "billing"},
		},
		{
			name:    "known feature accepted by catalog",
			decl:    transformers.Declaration{Source: orderType, Target: invoiceType, Feature: "billing"},
			catalog: catalog,
			want:    transformers.Metadata{Source: orderType, Target: invoiceType, Priority: transformers.DefaultPriority, Feature: "billing"},
		},
		{
			name:      "missing source",
			decl:      transformers.Declaration{Target: invoiceType},
			wantField: "source",
		},
		{
			name:      "missing target",
			decl:      transformers.Declaration{Source: orderType},
			wantField: "target",
		},
		{
			name:      "source equals target",
			decl:      transformers.Declaration{Source: orderType, Target: orderType},
			wantField: "target",
		},
		{
			name:      "feature with whitespace",
			decl:      transformers.Declaration{Source: orderType, Target: invoiceType, Feature: "bill ing"},
			wantField: "feature",
		},
		{
			name:      "unknown feature",
			decl:      transformers.Declaration{Source: orderType, Target: invoiceType, Feature: "shipping"},
			catalog:   catalog,
			wantField: "feature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := transformers.Parse(tt.decl, tt.catalog)
			if tt.wantField != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, transformers.ErrInvalidMetadata)
				var verr *transformers.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.wantField, verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegisterAuto_Validation(t *testing.T) {
	r := transformers.NewRegistry()

	var nilCtor func(*Order) (*Invoice, error)
	assert.ErrorIs(t, transformers.RegisterAuto(r, transformers.Declaration{}, nilCtor), transformers.ErrInvalidMetadata)

	// a *Receipt cannot be handed to a constructor taking *Order
	err := transformers.RegisterAuto(r,
		transformers.Declaration{Source: reflect.TypeFor[*Receipt]()},
		func(o *Order) (*Invoice, error) { return nil, nil },
	)
	assert.ErrorIs(t, err, transformers.ErrInvalidMetadata)

	// *Receipt is not an *Invoice
	err = transformers.RegisterAuto(r,
		transformers.Declaration{Target: invoiceType},
		func(o *Order) (*Receipt, error) { return nil, nil },
	)
	assert.ErrorIs(t, err, transformers.ErrInvalidMetadata)

	// a concrete source passed to an interface-typed constructor
	require.NoError(t, transformers.RegisterAuto(r,
		transformers.Declaration{Source: orderType, Target: billableType},
		func(o Identified) (*Receipt, error) { return &Receipt{}, nil },
	))
	assert.Equal(t, 1, r.Len())
}

func TestMetadata_String(t *testing.T) {
	m := transformers.Metadata{Source: orderType, Target: invoiceType, Priority: 10, Feature: "billing"}
	assert.Equal(t, "*transformers_test.Order -> *transformers_test.Invoice (priority 10, feature billing)", m.String())
}
