package blocks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringdefault"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/shopspring/decimal"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/console"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/identifier"
)

type clientResourceModel struct {
	ID              types.String `tfsdk:"id"`
	Name            types.String `tfsdk:"name"`
	Email           types.String `tfsdk:"email"`
	Company         types.String `tfsdk:"company"`
	Phone           types.String `tfsdk:"phone"`
	Status          types.String `tfsdk:"status"`
	Notes           types.String `tfsdk:"notes"`
	MonthlyRetainer types.String `tfsdk:"monthly_retainer"`
}

func (m *clientResourceModel) input(diags *diag.Diagnostics) console.ClientInput {
	in := console.ClientInput{
		Name:    m.Name.ValueString(),
		Email:   m.Email.ValueString(),
		Company: m.Company.ValueStringPointer(),
		Phone:   m.Phone.ValueStringPointer(),
		Status:  console.ClientStatus(m.Status.ValueString()),
		Notes:   m.Notes.ValueStringPointer(),
	}
	if !m.MonthlyRetainer.IsNull() && !m.MonthlyRetainer.IsUnknown() {
		d, err := decimal.NewFromString(m.MonthlyRetainer.ValueString())
		if err != nil {
			diags.AddAttributeError(
				path.Root("monthly_retainer"),
				"Invalid monthly retainer",
				fmt.Sprintf("%q is not a decimal amount.", m.MonthlyRetainer.ValueString()),
			)
			return in
		}
		in.MonthlyRetainer = &d
	}
	return in
}

func (m *clientResourceModel) refresh(cl *console.Client, fromStore bool) {
	m.ID = types.StringValue(cl.ID)
	m.Status = types.StringValue(string(cl.Status))
	if !fromStore {
		return
	}
	m.Name = storedString(m.Name, cl.Name, strings.TrimSpace)
	m.Email = storedString(m.Email, cl.Email, identifier.Clients.Base)
	m.Company = optionalString(m.Company, cl.Company)
	m.Phone = optionalString(m.Phone, cl.Phone)
	m.Notes = optionalString(m.Notes, cl.Notes)
	switch {
	case cl.MonthlyRetainer == nil:
		m.MonthlyRetainer = types.StringNull()
	case m.MonthlyRetainer.IsNull() || !retainerEqual(m.MonthlyRetainer.ValueString(), *cl.MonthlyRetainer):
		m.MonthlyRetainer = types.StringValue(cl.MonthlyRetainer.String())
	}
}

// retainerEqual keeps "100.00" in state when the store says "100".
func retainerEqual(configured string, stored decimal.Decimal) bool {
	d, err := decimal.NewFromString(configured)
	return err == nil && d.Equal(stored)
}

type clientResource struct {
	data *ProviderData
}

var (
	_ resource.Resource                = &clientResource{}
	_ resource.ResourceWithConfigure   = &clientResource{}
	_ resource.ResourceWithImportState = &clientResource{}
)

func NewClientResource() resource.Resource {
	return &clientResource{}
}

func (r *clientResource) Metadata(_ context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_client"
}

func (r *clientResource) Schema(_ context.Context, _ resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		Description: "An agency client. The email is unique among clients.",
		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				Computed: true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"name": schema.StringAttribute{
				Required: true,
			},
			"email": schema.StringAttribute{
				Description: "Contact email, stored lowercase.",
				Required:    true,
			},
			"company": schema.StringAttribute{
				Optional: true,
			},
			"phone": schema.StringAttribute{
				Optional: true,
			},
			"status": schema.StringAttribute{
				Description: "One of active, inactive or prospect.",
				Optional:    true,
				Computed:    true,
				Default:     stringdefault.StaticString(string(console.ClientProspect)),
			},
			"notes": schema.StringAttribute{
				Optional: true,
			},
			"monthly_retainer": schema.StringAttribute{
				Description: "Decimal amount, e.g. \"1500.00\".",
				Optional:    true,
			},
		},
	}
}

func (r *clientResource) Configure(_ context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	r.data = providerData(req.ProviderData, &resp.Diagnostics)
}

func (r *clientResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var plan clientResourceModel
	resp.Diagnostics.Append(req.Plan.Get(ctx, &plan)...)
	in := plan.input(&resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	cl, err := r.data.Console.CreateClient(ctx, r.data.Operator, in)
	if err != nil {
		addConsoleError(&resp.Diagnostics, "create client", err)
		return
	}

	plan.refresh(cl, false)
	resp.Diagnostics.Append(resp.State.Set(ctx, plan)...)
}

func (r *clientResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var state clientResourceModel
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	cl, err := r.data.Console.GetClient(ctx, r.data.Operator, state.ID.ValueString())
	if errors.Is(err, console.ErrNotFound) {
		resp.State.RemoveResource(ctx)
		return
	}
	if err != nil {
		addConsoleError(&resp.Diagnostics, "read client", err)
		return
	}

	state.refresh(cl, true)
	resp.Diagnostics.Append(resp.State.Set(ctx, state)...)
}

func (r *clientResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var plan, state clientResourceModel
	resp.Diagnostics.Append(req.Plan.Get(ctx, &plan)...)
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	in := plan.input(&resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	cl, err := r.data.Console.UpdateClient(ctx, r.data.Operator, state.ID.ValueString(), in)
	if err != nil {
		addConsoleError(&resp.Diagnostics, "update client", err)
		return
	}

	plan.refresh(cl, false)
	resp.Diagnostics.Append(resp.State.Set(ctx, plan)...)
}

func (r *clientResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var state clientResourceModel
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	err := r.data.Console.DeleteClient(ctx, r.data.Operator, state.ID.ValueString())
	if err != nil && !errors.Is(err, console.ErrNotFound) {
		addConsoleError(&resp.Diagnostics, "delete client", err)
	}
}

func (r *clientResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	resource.ImportStatePassthroughID(ctx, path.Root("id"), req, resp)
}
