package blocks

import (
	"context"
	"time"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

type blogPostDataSourceModel struct {
	Slug          types.String `tfsdk:"slug"`
	ID            types.String `tfsdk:"id"`
	Title         types.String `tfsdk:"title"`
	Content       types.String `tfsdk:"content"`
	Excerpt       types.String `tfsdk:"excerpt"`
	Status        types.String `tfsdk:"status"`
	Tags          types.List   `tfsdk:"tags"`
	CoverImageURL types.String `tfsdk:"cover_image_url"`
	AuthorID      types.String `tfsdk:"author_id"`
	PublishedAt   types.String `tfsdk:"published_at"`
}

type blogPostDataSource struct {
	data *ProviderData
}

var (
	_ datasource.DataSource              = &blogPostDataSource{}
	_ datasource.DataSourceWithConfigure = &blogPostDataSource{}
)

func NewBlogPostDataSource() datasource.DataSource {
	return &blogPostDataSource{}
}

func (d *blogPostDataSource) Metadata(_ context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_blog_post"
}

func (d *blogPostDataSource) Schema(_ context.Context, _ datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		Description: "Looks up a blog post by its slug.",
		Attributes: map[string]schema.Attribute{
			"slug":            schema.StringAttribute{Required: true},
			"id":              schema.StringAttribute{Computed: true},
			"title":           schema.StringAttribute{Computed: true},
			"content":         schema.StringAttribute{Computed: true},
			"excerpt":         schema.StringAttribute{Computed: true},
			"status":          schema.StringAttribute{Computed: true},
			"tags":            schema.ListAttribute{ElementType: types.StringType, Computed: true},
			"cover_image_url": schema.StringAttribute{Computed: true},
			"author_id":       schema.StringAttribute{Computed: true},
			"published_at":    schema.StringAttribute{Computed: true},
		},
	}
}

func (d *blogPostDataSource) Configure(_ context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.data = providerData(req.ProviderData, &resp.Diagnostics)
}

func (d *blogPostDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var config blogPostDataSourceModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &config)...)
	if resp.Diagnostics.HasError() {
		return
	}

	post, err := d.data.Console.GetPostBySlug(ctx, d.data.Operator, config.Slug.ValueString())
	if err != nil {
		addConsoleError(&resp.Diagnostics, "read blog post", err)
		return
	}

	state := blogPostDataSourceModel{
		Slug:          types.StringValue(post.Slug),
		ID:            types.StringValue(post.ID),
		Title:         types.StringValue(post.Title),
		Content:       types.StringValue(post.Content),
		Excerpt:       types.StringPointerValue(post.Excerpt),
		Status:        types.StringValue(string(post.Status)),
		CoverImageURL: types.StringPointerValue(post.CoverImageURL),
		AuthorID:      types.StringValue(post.AuthorID),
		PublishedAt:   types.StringNull(),
	}
	if post.PublishedAt != nil {
		state.PublishedAt = types.StringValue(post.PublishedAt.Format(time.RFC3339))
	}
	tags, diags := types.ListValueFrom(ctx, types.StringType, post.Tags)
	resp.Diagnostics.Append(diags...)
	state.Tags = tags

	resp.Diagnostics.Append(resp.State.Set(ctx, state)...)
}
