package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	run "google.golang.org/api/run/v2"

	dserrors "github.com/skylink-net/skylinkctl/internal/errors"
	"github.com/skylink-net/skylinkctl/internal/logging"
)

// operationPollInterval is how often a pending Cloud Run operation is
// re-checked while waiting for the rollout to finish.
const operationPollInterval = 2 * time.Second

// Spec describes the Cloud Run service to provision.
type Spec struct {
	ProjectID      string
	Name           string
	Image          string
	Region         string
	Memory         string
	CPU            string
	TimeoutSeconds int
	Port           int
	MinInstances   int
}

// Result reports a finished rollout.
type Result struct {
	// ServiceURI is the full https:// endpoint assigned by Cloud Run.
	ServiceURI string

	// CanonicalHost is ServiceURI without the scheme, the value that
	// goes into connection descriptors as Host/SNI.
	CanonicalHost string

	// Created is false when an existing service was updated instead.
	Created bool
}

// Provisioner rolls out the tunnel service.
type Provisioner interface {
	Deploy(ctx context.Context, spec Spec) (Result, error)
}

// Client provisions services through the Cloud Run Admin API. One client
// is bound to a single region because the API uses regional endpoints.
type Client struct {
	api    *run.Service
	region string
	logger *logging.Logger
}

// NewClient creates a Cloud Run client for the given region using
// application default credentials.
func NewClient(ctx context.Context, region string, logger *logging.Logger, opts ...option.ClientOption) (*Client, error) {
	endpoint := fmt.Sprintf("https://%s-run.googleapis.com/", region)
	clientOpts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, opts...)

	api, err := run.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, dserrors.UserError{
			Message:    "Failed to create Cloud Run client",
			Details:    err.Error(),
			Suggestion: "Run 'gcloud auth application-default login' to set up credentials",
			Err:        err,
		}
	}

	return &Client{api: api, region: region, logger: logger}, nil
}

// Deploy creates the service, or updates it in place when it already
// exists, then waits for the rollout, opens it to unauthenticated
// callers, and returns the assigned endpoint.
func (c *Client) Deploy(ctx context.Context, spec Spec) (Result, error) {
	parent := fmt.Sprintf("projects/%s/locations/%s", spec.ProjectID, c.region)
	name := fmt.Sprintf("%s/services/%s", parent, spec.Name)
	service := buildService(spec)

	result := Result{Created: true}

	c.logger.Info("Deploying service %s to %s", spec.Name, c.region)
	op, err := c.api.Projects.Locations.Services.Create(parent, service).
		ServiceId(spec.Name).Context(ctx).Do()
	if isAlreadyExists(err) {
		c.logger.Info("Service %s already exists, updating in place", spec.Name)
		result.Created = false
		op, err = c.api.Projects.Locations.Services.Patch(name, service).Context(ctx).Do()
	}
	if err != nil {
		return Result{}, dserrors.NewDeployError(spec.Name, "deploy", "Cloud Run API request failed", err)
	}

	if err := c.waitForOperation(ctx, spec.Name, op); err != nil {
		return Result{}, err
	}

	if err := c.allowUnauthenticated(ctx, spec.Name, name); err != nil {
		return Result{}, err
	}

	deployed, err := c.api.Projects.Locations.Services.Get(name).Context(ctx).Do()
	if err != nil {
		return Result{}, dserrors.NewDeployError(spec.Name, "describe", "failed to read back deployed service", err)
	}
	if deployed.Uri == "" {
		return Result{}, dserrors.NewDeployError(spec.Name, "describe", "service has no URI assigned yet", nil)
	}

	result.ServiceURI = deployed.Uri
	result.CanonicalHost = strings.TrimPrefix(deployed.Uri, "https://")
	c.logger.Info("Service ready at %s", result.ServiceURI)
	return result, nil
}

// buildService translates the deployment inputs into the Admin API shape.
func buildService(spec Spec) *run.GoogleCloudRunV2Service {
	return &run.GoogleCloudRunV2Service{
		Ingress: "INGRESS_TRAFFIC_ALL",
		Template: &run.GoogleCloudRunV2RevisionTemplate{
			Timeout: fmt.Sprintf("%ds", spec.TimeoutSeconds),
			Scaling: &run.GoogleCloudRunV2RevisionScaling{
				MinInstanceCount: int64(spec.MinInstances),
			},
			Containers: []*run.GoogleCloudRunV2Container{
				{
					Image: spec.Image,
					Ports: []*run.GoogleCloudRunV2ContainerPort{
						{ContainerPort: int64(spec.Port)},
					},
					Resources: &run.GoogleCloudRunV2ResourceRequirements{
						Limits: map[string]string{
							"memory": spec.Memory,
							"cpu":    spec.CPU,
						},
					},
				},
			},
		},
	}
}

// waitForOperation polls the long-running operation until the rollout
// finishes or the context is cancelled.
func (c *Client) waitForOperation(ctx context.Context, serviceName string, op *run.GoogleLongrunningOperation) error {
	for !op.Done {
		select {
		case <-ctx.Done():
			return dserrors.NewDeployError(serviceName, "deploy", "rollout cancelled while waiting", ctx.Err())
		case <-time.After(operationPollInterval):
		}

		var err error
		op, err = c.api.Projects.Locations.Operations.Get(op.Name).Context(ctx).Do()
		if err != nil {
			return dserrors.NewDeployError(serviceName, "deploy", "failed to poll rollout operation", err)
		}
	}

	if op.Error != nil {
		return dserrors.NewDeployError(serviceName, "deploy",
			fmt.Sprintf("rollout failed: %s", op.Error.Message), nil)
	}
	return nil
}

// allowUnauthenticated grants roles/run.invoker to allUsers so tunnel
// clients can reach the service without a Google identity.
func (c *Client) allowUnauthenticated(ctx context.Context, serviceName, resource string) error {
	request := &run.GoogleIamV1SetIamPolicyRequest{
		Policy: &run.GoogleIamV1Policy{
			Bindings: []*run.GoogleIamV1Binding{
				{
					Role:    "roles/run.invoker",
					Members: []string{"allUsers"},
				},
			},
		},
	}

	_, err := c.api.Projects.Locations.Services.SetIamPolicy(resource, request).Context(ctx).Do()
	if err != nil {
		return dserrors.NewDeployError(serviceName, "set-iam-policy",
			"failed to allow unauthenticated access", err)
	}
	return nil
}

func isAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 409
}
