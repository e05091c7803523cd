// Package blocks holds the tinytasks resources and data sources. Every write
// goes through the console, so slug and email uniqueness apply to Terraform
// exactly as they do to the HTTP API.
package blocks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/console"
)

// ProviderData is what the provider hands to every block on Configure.
type ProviderData struct {
	Console  *console.Console
	Operator console.Principal
}

func AllDataSources() []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewBlogPostDataSource,
	}
}

func AllResources() []func() resource.Resource {
	return []func() resource.Resource{
		NewBlogPostResource,
		NewClientResource,
	}
}

func providerData(data any, diags *diag.Diagnostics) *ProviderData {
	if data == nil {
		// not configured yet
		return nil
	}
	pd, ok := data.(*ProviderData)
	if !ok {
		diags.AddError(
			"Unexpected provider data",
			fmt.Sprintf("Expected *blocks.ProviderData, got %T. Please report this issue to the provider developers.", data),
		)
		return nil
	}
	return pd
}

func addConsoleError(diags *diag.Diagnostics, action string, err error) {
	summary := fmt.Sprintf("Unable to %s", action)
	switch {
	case errors.Is(err, console.ErrForbidden):
		diags.AddError(summary, "The provider operator is not allowed to do this: "+err.Error())
	case errors.Is(err, console.ErrInvalidInput):
		diags.AddError(summary, "Invalid configuration: "+err.Error())
	default:
		diags.AddError(summary, err.Error())
	}
}

// configured reports whether prior holds a value the user wrote.
func configured(prior attr.Value) bool {
	return !prior.IsNull() && !prior.IsUnknown()
}

// storedString maps a stored field back to state. The console normalizes
// what it saves, so the configured value is kept while it normalizes to the
// stored one.
func storedString(prior types.String, stored string, normalize func(string) string) types.String {
	if configured(prior) && normalize(prior.ValueString()) == stored {
		return prior
	}
	return types.StringValue(stored)
}

// optionalString maps a stored optional field back to state. The console
// trims optional fields and stores blanks as absent.
func optionalString(prior types.String, value *string) types.String {
	if value == nil {
		if configured(prior) && strings.TrimSpace(prior.ValueString()) == "" {
			return prior
		}
		return types.StringNull()
	}
	return storedString(prior, *value, strings.TrimSpace)
}

// tagList maps stored tags back to state, keeping the configured list while
// it normalizes to the stored one.
func tagList(ctx context.Context, prior types.List, tags []string, diags *diag.Diagnostics) types.List {
	if len(tags) == 0 && prior.IsNull() {
		return prior
	}
	if configured(prior) {
		var values []string
		if d := prior.ElementsAs(ctx, &values, false); !d.HasError() && slices.Equal(console.NormalizeTags(values), tags) {
			return prior
		}
	}
	list, d := types.ListValueFrom(ctx, types.StringType, tags)
	diags.Append(d...)
	return list
}
