package blocks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringdefault"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/console"
)

type blogPostResourceModel struct {
	ID            types.String `tfsdk:"id"`
	Title         types.String `tfsdk:"title"`
	Slug          types.String `tfsdk:"slug"`
	Content       types.String `tfsdk:"content"`
	Excerpt       types.String `tfsdk:"excerpt"`
	Status        types.String `tfsdk:"status"`
	Tags          types.List   `tfsdk:"tags"`
	CoverImageURL types.String `tfsdk:"cover_image_url"`
	PublishedAt   types.String `tfsdk:"published_at"`
}

func (m *blogPostResourceModel) input(ctx context.Context, diags *diag.Diagnostics) console.PostInput {
	in := console.PostInput{
		Title:         m.Title.ValueString(),
		Content:       m.Content.ValueString(),
		Excerpt:       m.Excerpt.ValueStringPointer(),
		Status:        console.PostStatus(m.Status.ValueString()),
		CoverImageURL: m.CoverImageURL.ValueStringPointer(),
	}
	if !m.Tags.IsNull() && !m.Tags.IsUnknown() {
		diags.Append(m.Tags.ElementsAs(ctx, &in.Tags, false)...)
	}
	return in
}

// refresh copies what the console computed into the model. Configured
// fields keep their configured value unless fromStore is set, as on Read.
func (m *blogPostResourceModel) refresh(ctx context.Context, post *console.Post, fromStore bool, diags *diag.Diagnostics) {
	m.ID = types.StringValue(post.ID)
	m.Slug = types.StringValue(post.Slug)
	m.Status = types.StringValue(string(post.Status))
	m.PublishedAt = types.StringNull()
	if post.PublishedAt != nil {
		m.PublishedAt = types.StringValue(post.PublishedAt.Format(time.RFC3339))
	}
	if !fromStore {
		return
	}
	m.Title = storedString(m.Title, post.Title, strings.TrimSpace)
	// empty content is not stored, so it reads back as ""
	if post.Content != "" || !m.Content.IsNull() {
		m.Content = types.StringValue(post.Content)
	}
	m.Excerpt = optionalString(m.Excerpt, post.Excerpt)
	m.CoverImageURL = optionalString(m.CoverImageURL, post.CoverImageURL)
	m.Tags = tagList(ctx, m.Tags, post.Tags, diags)
}

type blogPostResource struct {
	data *ProviderData
}

var (
	_ resource.Resource                = &blogPostResource{}
	_ resource.ResourceWithConfigure   = &blogPostResource{}
	_ resource.ResourceWithImportState = &blogPostResource{}
)

func NewBlogPostResource() resource.Resource {
	return &blogPostResource{}
}

func (r *blogPostResource) Metadata(_ context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_blog_post"
}

func (r *blogPostResource) Schema(_ context.Context, _ resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		Description: "A blog post. Its slug is derived from the title and is unique among posts.",
		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				Computed: true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"title": schema.StringAttribute{
				Required: true,
			},
			"slug": schema.StringAttribute{
				Description: "URL slug. Recomputed when the title changes; a taken slug gets a -1, -2, ... suffix.",
				Computed:    true,
			},
			"content": schema.StringAttribute{
				Optional: true,
			},
			"excerpt": schema.StringAttribute{
				Optional: true,
			},
			"status": schema.StringAttribute{
				Description: "One of draft, published or archived.",
				Optional:    true,
				Computed:    true,
				Default:     stringdefault.StaticString(string(console.PostDraft)),
			},
			"tags": schema.ListAttribute{
				ElementType: types.StringType,
				Optional:    true,
			},
			"cover_image_url": schema.StringAttribute{
				Optional: true,
			},
			"published_at": schema.StringAttribute{
				Computed: true,
			},
		},
	}
}

func (r *blogPostResource) Configure(_ context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	r.data = providerData(req.ProviderData, &resp.Diagnostics)
}

func (r *blogPostResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var plan blogPostResourceModel
	resp.Diagnostics.Append(req.Plan.Get(ctx, &plan)...)
	in := plan.input(ctx, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	post, err := r.data.Console.CreatePost(ctx, r.data.Operator, in)
	if err != nil {
		addConsoleError(&resp.Diagnostics, "create blog post", err)
		return
	}
	tflog.Trace(ctx, "created blog post", map[string]interface{}{"id": post.ID, "slug": post.Slug})

	plan.refresh(ctx, post, false, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, plan)...)
}

func (r *blogPostResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var state blogPostResourceModel
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	post, err := r.data.Console.GetPost(ctx, r.data.Operator, state.ID.ValueString())
	if errors.Is(err, console.ErrNotFound) {
		resp.State.RemoveResource(ctx)
		return
	}
	if err != nil {
		addConsoleError(&resp.Diagnostics, "read blog post", err)
		return
	}

	state.refresh(ctx, post, true, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, state)...)
}

func (r *blogPostResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var plan, state blogPostResourceModel
	resp.Diagnostics.Append(req.Plan.Get(ctx, &plan)...)
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	in := plan.input(ctx, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	post, err := r.data.Console.UpdatePost(ctx, r.data.Operator, state.ID.ValueString(), in)
	if err != nil {
		addConsoleError(&resp.Diagnostics, "update blog post", err)
		return
	}

	plan.refresh(ctx, post, false, &resp.Diagnostics)
	resp.Diagnostics.Append(resp.State.Set(ctx, plan)...)
}

func (r *blogPostResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var state blogPostResourceModel
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	err := r.data.Console.DeletePost(ctx, r.data.Operator, state.ID.ValueString())
	if err != nil && !errors.Is(err, console.ErrNotFound) {
		addConsoleError(&resp.Diagnostics, "delete blog post", err)
	}
}

func (r *blogPostResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	resource.ImportStatePassthroughID(ctx, path.Root("id"), req, resp)
}
