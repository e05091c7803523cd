package provider

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/console"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage/dynamodb"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/terraform/blocks"
)

const (
	providerAttrAWSProfile = "profile"
	providerAttrAWSRegion  = "region"
	providerAttrTableName  = "table_name"
	providerAttrKeyARN     = "kms_key_arn"
	providerAttrEndpoint   = "endpoint"
	providerAttrOperatorID = "operator_id"

	defaultOperatorID = "terraform"
)

type tinytasksProviderModel struct {
	AWSProfile types.String `tfsdk:"profile"`
	AWSRegion  types.String `tfsdk:"region"`
	TableName  types.String `tfsdk:"table_name"`
	KMSKeyARN  types.String `tfsdk:"kms_key_arn"`
	Endpoint   types.String `tfsdk:"endpoint"`
	OperatorID types.String `tfsdk:"operator_id"`
}

type tinytasksProvider struct {
	version string
	commit  string
}

var _ provider.Provider = &tinytasksProvider{}

func New(version, commit string) func() provider.Provider {
	return func() provider.Provider {
		return &tinytasksProvider{version, commit}
	}
}

func (p *tinytasksProvider) Metadata(_ context.Context, _ provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "tinytasks"
	resp.Version = fmt.Sprintf("%s-%s", p.version, p.commit)
}

func (p *tinytasksProvider) Schema(_ context.Context, _ provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		Description: "Manage the agency console's blog posts and clients.",
		Attributes: map[string]schema.Attribute{
			providerAttrAWSProfile: schema.StringAttribute{
				Description: "The AWS profile to use for DynamoDB storage.",
				Optional:    true,
			},
			providerAttrAWSRegion: schema.StringAttribute{
				Description: "The AWS region to use for DynamoDB storage.",
				Required:    true,
			},
			providerAttrTableName: schema.StringAttribute{
				Description: "The table name to use for DynamoDB storage.",
				Required:    true,
			},
			providerAttrKeyARN: schema.StringAttribute{
				Description: "The ARN of the KMS key to use for encrypting the DynamoDB storage. The AWS owned key is used when unset.",
				Optional:    true,
			},
			providerAttrEndpoint: schema.StringAttribute{
				Description: "Override the DynamoDB endpoint, e.g. for DynamoDB Local.",
				Optional:    true,
			},
			providerAttrOperatorID: schema.StringAttribute{
				Description: "User ID recorded as author and actor of changes. Defaults to \"terraform\".",
				Optional:    true,
			},
		},
	}
}

func (p *tinytasksProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var config tinytasksProviderModel
	diags := req.Config.Get(ctx, &config)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	if config.AWSProfile.IsUnknown() {
		resp.Diagnostics.AddAttributeError(
			path.Root(providerAttrAWSProfile),
			"Unknown profile",
			"Cannot configure the provider client with an unknown profile.",
		)
	}
	if config.AWSRegion.IsUnknown() {
		resp.Diagnostics.AddAttributeError(
			path.Root(providerAttrAWSRegion),
			"Unknown region",
			"Cannot configure the provider client with an unknown region.",
		)
	}
	ctx = tflog.SetField(ctx, providerAttrAWSRegion, config.AWSRegion.ValueString())
	if config.TableName.IsUnknown() {
		resp.Diagnostics.AddAttributeError(
			path.Root(providerAttrTableName),
			"Unknown table name",
			"Cannot configure the provider client with an unknown DynamoDB storage table name.",
		)
	}
	ctx = tflog.SetField(ctx, providerAttrTableName, config.TableName.ValueString())
	if config.KMSKeyARN.IsUnknown() {
		resp.Diagnostics.AddAttributeError(
			path.Root(providerAttrKeyARN),
			"Unknown KMS Key ARN",
			"Cannot configure the provider client with an unknown KMS Key ARN.",
		)
	}
	if config.OperatorID.IsUnknown() {
		resp.Diagnostics.AddAttributeError(
			path.Root(providerAttrOperatorID),
			"Unknown operator ID",
			"Cannot configure the provider with an unknown operator ID.",
		)
	}
	if resp.Diagnostics.HasError() {
		return
	}

	var optFns []func(*awsdynamodb.Options)
	if endpoint := config.Endpoint.ValueString(); endpoint != "" {
		optFns = append(optFns, func(o *awsdynamodb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	client, err := dynamodb.NewClient(ctx,
		config.AWSProfile.ValueString(),
		config.AWSRegion.ValueString(),
		config.TableName.ValueString(),
		config.KMSKeyARN.ValueString(),
		optFns...,
	)
	if err != nil {
		resp.Diagnostics.AddError(
			"Unable to create provider client",
			"An unexpected error occurred when creating the provider client.\n\n"+
				err.Error(),
		)
	}
	if resp.Diagnostics.HasError() {
		return
	}

	data := &blocks.ProviderData{
		Console:  console.New(client, nil, nil),
		Operator: operator(config.OperatorID),
	}
	resp.DataSourceData = data
	resp.ResourceData = data
}

// operator is the principal Terraform acts as. Whoever holds the provider
// credentials already has full table access, so it is an admin.
func operator(id types.String) console.Principal {
	userID := id.ValueString()
	if userID == "" {
		userID = defaultOperatorID
	}
	return console.Principal{UserID: userID, Role: console.RoleAdmin}
}

func (p *tinytasksProvider) DataSources(_ context.Context) []func() datasource.DataSource {
	return blocks.AllDataSources()
}

func (p *tinytasksProvider) Resources(_ context.Context) []func() resource.Resource {
	return blocks.AllResources()
}
