package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroups"
)

const nameTagKey = "Name"

type EC2Options struct {
	Region      string
	AccessKey   string
	SecretKey   string
	GroupTagKey string
}

// EC2Client implements Client against EC2 instances, with resource
// groups coming from the Resource Groups service. A machine's owning
// group is named by the configured membership tag on the instance.
type EC2Client struct {
	ec2         *ec2.Client
	groups      *resourcegroups.Client
	groupTagKey string
}

func NewEC2(ctx context.Context, opt EC2Options) (*EC2Client, error) {
	if opt.Region == "" {
		return nil, fmt.Errorf("ec2: region is required")
	}
	if opt.GroupTagKey == "" {
		return nil, fmt.Errorf("ec2: group tag key is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opt.Region),
	}
	// Static keys when configured, default provider chain otherwise.
	if opt.AccessKey != "" || opt.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opt.AccessKey, opt.SecretKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &EC2Client{
		ec2:         ec2.NewFromConfig(cfg),
		groups:      resourcegroups.NewFromConfig(cfg),
		groupTagKey: opt.GroupTagKey,
	}, nil
}

func (c *EC2Client) ListMachines(ctx context.Context) ([]Machine, error) {
	var out []Machine

	p := ec2.NewDescribeInstancesPaginator(c.ec2, &ec2.DescribeInstancesInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}
		for _, res := range page.Reservations {
			for _, in := range res.Instances {
				out = append(out, c.machineFromInstance(in))
			}
		}
	}
	return out, nil
}

func (c *EC2Client) machineFromInstance(in ec2types.Instance) Machine {
	m := Machine{
		ID:   aws.ToString(in.InstanceId),
		Type: string(in.InstanceType),
		Tags: make(map[string]string, len(in.Tags)),
	}
	if in.State != nil {
		m.State = ParsePowerState(string(in.State.Name))
	}
	for _, t := range in.Tags {
		k := aws.ToString(t.Key)
		v := aws.ToString(t.Value)
		m.Tags[k] = v
		switch k {
		case nameTagKey:
			m.Name = v
		case c.groupTagKey:
			m.Group = v
		}
	}
	if m.Name == "" {
		m.Name = m.ID
	}
	return m
}

func (c *EC2Client) ListGroups(ctx context.Context) ([]Group, error) {
	var out []Group

	p := resourcegroups.NewListGroupsPaginator(c.groups, &resourcegroups.ListGroupsInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list resource groups: %w", err)
		}
		for _, gi := range page.GroupIdentifiers {
			g := Group{
				Name: aws.ToString(gi.GroupName),
				ARN:  aws.ToString(gi.GroupArn),
			}
			tags, err := c.groups.GetTags(ctx, &resourcegroups.GetTagsInput{Arn: gi.GroupArn})
			if err != nil {
				return nil, fmt.Errorf("get tags for group %s: %w", g.Name, err)
			}
			g.Tags = tags.Tags
			out = append(out, g)
		}
	}
	return out, nil
}

func (c *EC2Client) PowerState(ctx context.Context, id string) (PowerState, error) {
	out, err := c.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return StateUnknown, fmt.Errorf("describe instance %s: %w", id, err)
	}
	for _, res := range out.Reservations {
		for _, in := range res.Instances {
			if in.State != nil {
				return ParsePowerState(string(in.State.Name)), nil
			}
		}
	}
	return StateUnknown, fmt.Errorf("instance %s not found", id)
}

func (c *EC2Client) Start(ctx context.Context, id string) error {
	_, err := c.ec2.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return fmt.Errorf("start instance %s: %w", id, err)
	}
	return nil
}

func (c *EC2Client) Stop(ctx context.Context, id string, force bool) error {
	_, err := c.ec2.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{id},
		Force:       aws.Bool(force),
	})
	if err != nil {
		return fmt.Errorf("stop instance %s: %w", id, err)
	}
	return nil
}

func (c *EC2Client) SetTags(ctx context.Context, id string, tags map[string]string) error {
	if len(tags) == 0 {
		return nil
	}
	ec2Tags := make([]ec2types.Tag, 0, len(tags))
	for k, v := range tags {
		ec2Tags = append(ec2Tags, ec2types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	_, err := c.ec2.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{id},
		Tags:      ec2Tags,
	})
	if err != nil {
		return fmt.Errorf("tag instance %s: %w", id, err)
	}
	return nil
}

// StopProtected reports the disableApiStop attribute; protected
// machines should be left alone by tag-defaulting tooling.
func (c *EC2Client) StopProtected(ctx context.Context, id string) (bool, error) {
	out, err := c.ec2.DescribeInstanceAttribute(ctx, &ec2.DescribeInstanceAttributeInput{
		InstanceId: aws.String(id),
		Attribute:  ec2types.InstanceAttributeNameDisableApiStop,
	})
	if err != nil {
		return false, fmt.Errorf("describe attribute for %s: %w", id, err)
	}
	if out.DisableApiStop == nil {
		return false, nil
	}
	return aws.ToBool(out.DisableApiStop.Value), nil
}
