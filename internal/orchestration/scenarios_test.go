package orchestration_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/orchestration"
	"github.com/imamik/tradefleet/internal/provisioning"
	tftest "github.com/imamik/tradefleet/internal/testing"
)

// addresslessProvider never learns an instance address.
type addresslessProvider struct {
	*tftest.FakeProvider
}

func (p addresslessProvider) GetAddress(context.Context, string) (string, error) {
	return "", nil
}

func newOrchestrator(env *config.Environment, fakes *tftest.Fakes, opts ...orchestration.Option) *orchestration.Orchestrator {
	deps := orchestration.Dependencies{
		Provider: fakes.Provider,
		Security: fakes.Security,
		Services: fakes.Registry,
		Journal:  fakes.Journal,
	}
	opts = append([]orchestration.Option{
		orchestration.WithRunID("run-1"),
		orchestration.WithObserver(fakes.Observer),
		orchestration.WithTimeouts(tftest.FastTimeouts()),
	}, opts...)
	return orchestration.New(env, deps, opts...)
}

func always(answer bool, calls *int) orchestration.RollbackDecider {
	return func(context.Context, orchestration.Failure) bool {
		*calls++
		return answer
	}
}

var _ = Describe("Deploy", func() {
	var (
		ctx   context.Context
		fakes *tftest.Fakes
	)

	BeforeEach(func() {
		ctx = context.Background()
		fakes = tftest.NewFakes()
	})

	Context("Scenario A: one instance and a monitor", func() {
		It("records the instance and the service and succeeds", func() {
			env := tftest.NewEnvironmentBuilder("prod").
				WithInstance("node-a").
				WithService(config.ServiceKindMonitor, "node-a").
				Build()
			orch := newOrchestrator(env, fakes)

			Expect(orch.Deploy(ctx, false)).To(BeTrue())
			Expect(orch.Err()).NotTo(HaveOccurred())

			state := orch.State()
			Expect(state.Count(provisioning.KindInstance)).To(Equal(1))
			Expect(state.Count(provisioning.KindSecurity)).To(Equal(0))
			Expect(state.Count(provisioning.KindService)).To(Equal(1))
			Expect(tftest.Keys(state.Records())).To(Equal([]string{"instance/node-a", "service/node-a/monitor"}))

			summary := orch.Summary()
			Expect(summary.Success).To(BeTrue())
			Expect(summary.Instances).To(HaveLen(1))
			Expect(summary.Instances[0].Address).To(Equal("203.0.113.1"))
			Expect(fakes.Journal.Status("run-1")).To(Equal(provisioning.RunSucceeded))
		})
	})

	Context("Scenario B: instance creation fails", func() {
		It("leaves the state empty and never reaches later phases", func() {
			fakes.Provider.CreateErr["prod-node-a"] = errors.New("create rejected")
			env := tftest.NewEnvironmentBuilder("prod").
				WithInstance("node-a").
				WithSecurity(config.SecurityPolicy{Targets: []string{"node-a"}}).
				WithService(config.ServiceKindMonitor, "node-a").
				Build()
			decisions := 0
			orch := newOrchestrator(env, fakes, orchestration.WithRollbackDecider(always(true, &decisions)))

			Expect(orch.Deploy(ctx, false)).To(BeFalse())

			Expect(orch.Err()).To(MatchError(ContainSubstring("create rejected")))
			Expect(orch.State().Len()).To(Equal(0))
			Expect(fakes.Security.Targets()).To(BeEmpty())
			Expect(fakes.Registry.Factory(config.ServiceKindMonitor).Configs()).To(BeEmpty())
			Expect(decisions).To(Equal(0), "nothing was created, so rollback is not offered")
			Expect(fakes.Journal.Status("run-1")).To(Equal(provisioning.RunFailed))
		})
	})

	It("succeeds trivially for an empty descriptor", func() {
		orch := newOrchestrator(tftest.NewEnvironmentBuilder("prod").Build(), fakes)

		Expect(orch.Deploy(ctx, false)).To(BeTrue())
		Expect(orch.State().Len()).To(Equal(0))
		Expect(fakes.Provider.Calls()).To(BeEmpty())
	})

	Describe("dry run", func() {
		It("calls no collaborator and mirrors the real run", func() {
			env := tftest.NewEnvironmentBuilder("prod").
				WithInstance("node-a").
				WithStableInstance("node-b").
				WithSecurity(config.SecurityPolicy{Targets: []string{"node-b"}}).
				WithService(config.ServiceKindMonitor, "node-a").
				WithService("order-router", "node-a").
				WithService(config.ServiceKindTradingBot, "node-b").
				Build()

			dry := newOrchestrator(env, fakes)
			Expect(dry.Deploy(ctx, true)).To(BeTrue())

			Expect(fakes.Provider.Calls()).To(BeEmpty())
			Expect(fakes.Security.Targets()).To(BeEmpty())
			for _, kind := range config.KnownServiceKinds {
				Expect(fakes.Registry.Factory(kind).Configs()).To(BeEmpty())
			}
			runs, err := fakes.Journal.Runs()
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(BeEmpty())
			Expect(dry.State().Len()).To(Equal(0))

			live := newOrchestrator(env, tftest.NewFakes())
			Expect(live.Deploy(ctx, false)).To(BeTrue())
			Expect(dry.Plan().Resources()).To(Equal(tftest.Keys(live.State().Records())))
		})

		It("always succeeds, even when a real run would fail", func() {
			fakes.Provider.CreateErr["prod-node-a"] = errors.New("quota")
			orch := newOrchestrator(tftest.NewEnvironmentBuilder("prod").WithInstance("node-a").Build(), fakes)

			Expect(orch.Deploy(ctx, true)).To(BeTrue())
			Expect(orch.Summary()).To(BeNil())
		})
	})

	DescribeTable("failure on the Nth instance",
		func(n int) {
			builder := tftest.NewEnvironmentBuilder("prod")
			for i := 1; i <= n+1; i++ {
				builder = builder.WithInstance(fmt.Sprintf("node-%d", i))
			}
			fakes.Provider.CreateErr[fmt.Sprintf("prod-node-%d", n)] = errors.New("capacity")
			decisions := 0
			orch := newOrchestrator(builder.Build(), fakes, orchestration.WithRollbackDecider(always(true, &decisions)))

			Expect(orch.Deploy(ctx, false)).To(BeFalse())

			Expect(orch.State().Count(provisioning.KindInstance)).To(Equal(n - 1))
			Expect(decisions).To(Equal(1))

			var want []string
			for id := n - 1; id >= 1; id-- {
				want = append(want, fmt.Sprint(id))
			}
			Expect(fakes.Provider.CallsOf("destroy")).To(Equal(want))
			Expect(fakes.Provider.Live()).To(BeEmpty())
			Expect(orch.Summary().Rollback.Destroyed).To(HaveLen(n - 1))
			Expect(fakes.Journal.Status("run-1")).To(Equal(provisioning.RunRolledBack))
		},
		Entry("second of three", 2),
		Entry("third of four", 3),
		Entry("fifth of six", 5),
	)

	It("never records a service before its instance", func() {
		env := tftest.NewEnvironmentBuilder("prod").
			WithInstance("node-a").
			WithInstance("node-b").
			WithSecurity(config.SecurityPolicy{Targets: []string{"node-a", "node-b"}}).
			WithService(config.ServiceKindTradingBot, "node-b").
			WithService(config.ServiceKindMonitor, "node-a").
			WithService(config.ServiceKindDataCollector, "node-b").
			Build()
		orch := newOrchestrator(env, fakes)

		Expect(orch.Deploy(ctx, false)).To(BeTrue())

		position := make(map[string]int)
		for i, rec := range orch.State().Records() {
			position[rec.Key] = i
		}
		for _, rec := range orch.State().Records() {
			if rec.Kind == provisioning.KindInstance {
				continue
			}
			Expect(position[rec.Key]).To(BeNumerically(">", position[provisioning.InstanceKey(rec.Instance)]))
		}
		Expect(orch.State().Count(provisioning.KindSecurity)).To(Equal(2))
		Expect(orch.State().Count(provisioning.KindService)).To(Equal(3))
	})

	It("skips unknown service kinds", func() {
		env := tftest.NewEnvironmentBuilder("prod").
			WithInstance("node-a").
			WithService("order-router", "node-a").
			WithService(config.ServiceKindMonitor, "node-a").
			Build()
		orch := newOrchestrator(env, fakes)

		Expect(orch.Deploy(ctx, false)).To(BeTrue())
		Expect(orch.State().Count(provisioning.KindService)).To(Equal(1))
		Expect(fakes.Observer.Events(provisioning.EventResourceSkipped)).To(HaveLen(1))
	})

	It("aborts when a service target has no address", func() {
		fakes.Provider.DeferAddress = true
		env := tftest.NewEnvironmentBuilder("prod").
			WithInstance("node-a").
			WithService(config.ServiceKindMonitor, "node-a").
			Build()
		orch := orchestration.New(env, orchestration.Dependencies{
			Provider: addresslessProvider{fakes.Provider},
			Security: fakes.Security,
			Services: fakes.Registry,
		}, orchestration.WithObserver(fakes.Observer), orchestration.WithTimeouts(tftest.FastTimeouts()))

		Expect(orch.Deploy(ctx, false)).To(BeFalse())
		Expect(errors.Is(orch.Err(), provisioning.ErrAddressUnresolved)).To(BeTrue())
		Expect(orch.State().Count(provisioning.KindService)).To(Equal(0))
		Expect(fakes.Registry.Factory(config.ServiceKindMonitor).Deployed()).To(BeEmpty())
	})

	It("refuses to run twice", func() {
		orch := newOrchestrator(tftest.NewEnvironmentBuilder("prod").WithInstance("node-a").Build(), fakes)

		Expect(orch.Deploy(ctx, false)).To(BeTrue())
		Expect(orch.Deploy(ctx, false)).To(BeFalse())
		Expect(orch.Err()).To(MatchError(provisioning.ErrAlreadyDeployed))
		Expect(fakes.Provider.CallsOf("create")).To(HaveLen(1))
	})

	Describe("interruption", func() {
		It("stops before the next phase and rolls back on a live context", func() {
			cctx, cancel := context.WithCancel(ctx)
			defer cancel()
			fakes.Provider.OnCreate = func(provisioning.InstanceRequest) { cancel() }
			env := tftest.NewEnvironmentBuilder("prod").
				WithInstance("node-a").
				WithService(config.ServiceKindMonitor, "node-a").
				Build()

			var failure orchestration.Failure
			orch := newOrchestrator(env, fakes, orchestration.WithRollbackDecider(
				func(_ context.Context, f orchestration.Failure) bool {
					failure = f
					return true
				}))

			Expect(orch.Deploy(cctx, false)).To(BeFalse())

			Expect(errors.Is(orch.Err(), provisioning.ErrInterrupted)).To(BeTrue())
			Expect(failure.Interrupted).To(BeTrue())
			Expect(failure.Recorded).To(Equal(1))
			Expect(fakes.Registry.Factory(config.ServiceKindMonitor).Configs()).To(BeEmpty())
			Expect(fakes.Provider.CallsOf("destroy")).To(Equal([]string{"1"}))
		})
	})
})

var _ = Describe("Rollback", func() {
	var (
		ctx   context.Context
		fakes *tftest.Fakes
	)

	BeforeEach(func() {
		ctx = context.Background()
		fakes = tftest.NewFakes()
	})

	It("is not run when the decider declines", func() {
		fakes.Provider.CreateErr["prod-node-b"] = errors.New("capacity")
		env := tftest.NewEnvironmentBuilder("prod").WithInstance("node-a").WithInstance("node-b").Build()
		decisions := 0
		orch := newOrchestrator(env, fakes, orchestration.WithRollbackDecider(always(false, &decisions)))

		Expect(orch.Deploy(ctx, false)).To(BeFalse())

		Expect(decisions).To(Equal(1))
		Expect(fakes.Provider.CallsOf("destroy")).To(BeEmpty())
		Expect(fakes.Journal.Status("run-1")).To(Equal(provisioning.RunFailed))
		Expect(orch.Summary().Rollback).To(BeNil())
	})

	It("skips hardening and services and releases stable addresses", func() {
		fakes.Registry.Factory(config.ServiceKindTradingBot).DeployErr = errors.New("image pull failed")
		env := tftest.NewEnvironmentBuilder("prod").
			WithStableInstance("node-a").
			WithSecurity(config.SecurityPolicy{Targets: []string{"node-a"}}).
			WithService(config.ServiceKindMonitor, "node-a").
			WithService(config.ServiceKindTradingBot, "node-a").
			Build()
		orch := newOrchestrator(env, fakes)

		Expect(orch.Deploy(ctx, false)).To(BeFalse())
		report := orch.Rollback(ctx)

		Expect(report.Complete()).To(BeTrue())
		Expect(report.Skipped).To(Equal([]string{"service/node-a/monitor", "security/node-a"}))
		Expect(report.Released).To(Equal([]string{"prod-node-a-ipv4"}))
		Expect(report.Destroyed).To(Equal([]string{"instance/node-a"}))
		Expect(fakes.Provider.StableAddresses()).To(BeEmpty())
		Expect(fakes.Provider.Live()).To(BeEmpty())
		Expect(orch.Summary().Rollback).To(Equal(report))
	})

	It("keeps a stable address that existed before the run", func() {
		fakes.Provider.SeedStableAddress("prod-node-a-ipv4")
		fakes.Registry.Factory(config.ServiceKindMonitor).DeployErr = errors.New("image pull failed")
		env := tftest.NewEnvironmentBuilder("prod").
			WithStableInstance("node-a").
			WithService(config.ServiceKindMonitor, "node-a").
			Build()
		orch := newOrchestrator(env, fakes)

		Expect(orch.Deploy(ctx, false)).To(BeFalse())
		report := orch.Rollback(ctx)

		Expect(report.Complete()).To(BeTrue())
		Expect(report.Released).To(BeEmpty())
		Expect(report.Kept).To(Equal([]string{"prod-node-a-ipv4"}))
		Expect(report.Destroyed).To(Equal([]string{"instance/node-a"}))
		Expect(fakes.Provider.CallsOf("release")).To(BeEmpty())
		Expect(fakes.Provider.StableAddresses()).To(Equal([]string{"prod-node-a-ipv4"}))
		Expect(fakes.Provider.Live()).To(BeEmpty())
	})

	It("treats resources that are already gone as rolled back", func() {
		fakes.Provider.CreateErr["prod-node-c"] = errors.New("capacity")
		env := tftest.NewEnvironmentBuilder("prod").
			WithInstance("node-a").WithInstance("node-b").WithInstance("node-c").Build()
		orch := newOrchestrator(env, fakes)
		Expect(orch.Deploy(ctx, false)).To(BeFalse())

		fakes.Provider.DestroyErr["2"] = fmt.Errorf("server 2: %w", provisioning.ErrResourceNotFound)
		Expect(fakes.Provider.Destroy(ctx, "1")).To(Succeed())

		first := orch.Rollback(ctx)
		Expect(first.Complete()).To(BeTrue())
		Expect(first.Destroyed).To(Equal([]string{"instance/node-b", "instance/node-a"}))

		second := orch.Rollback(ctx)
		Expect(second.Complete()).To(BeTrue())
		Expect(second.Destroyed).To(Equal(first.Destroyed))
	})

	It("continues past a failed delete", func() {
		fakes.Provider.CreateErr["prod-node-c"] = errors.New("capacity")
		fakes.Provider.DestroyErr["2"] = errors.New("locked")
		env := tftest.NewEnvironmentBuilder("prod").
			WithInstance("node-a").WithInstance("node-b").WithInstance("node-c").Build()
		decisions := 0
		orch := newOrchestrator(env, fakes, orchestration.WithRollbackDecider(always(true, &decisions)))

		Expect(orch.Deploy(ctx, false)).To(BeFalse())

		report := orch.Summary().Rollback
		Expect(report).NotTo(BeNil())
		Expect(report.Complete()).To(BeFalse())
		Expect(report.Failures).To(HaveLen(1))
		Expect(report.Failures[0].Key).To(Equal("instance/node-b"))
		Expect(report.Destroyed).To(Equal([]string{"instance/node-a"}))
		Expect(fakes.Provider.CallsOf("destroy")).To(Equal([]string{"2", "1"}))
		Expect(fakes.Journal.Status("run-1")).To(Equal(provisioning.RunRollbackIncomplete))
	})

	It("destroys an instance that never became ready", func() {
		fakes.Provider.NotReady["prod-node-b"] = true
		env := tftest.NewEnvironmentBuilder("prod").WithInstance("node-a").WithInstance("node-b").Build()
		decisions := 0
		orch := newOrchestrator(env, fakes, orchestration.WithRollbackDecider(always(true, &decisions)))

		Expect(orch.Deploy(ctx, false)).To(BeFalse())

		Expect(errors.Is(orch.Err(), provisioning.ErrReadinessTimeout)).To(BeTrue())
		Expect(orch.State().Count(provisioning.KindInstance)).To(Equal(1))
		report := orch.Summary().Rollback
		Expect(report.Orphans).To(Equal([]string{"instance/node-b"}))
		Expect(report.Destroyed).To(Equal([]string{"instance/node-a"}))
		Expect(fakes.Provider.CallsOf("destroy")).To(Equal([]string{"2", "1"}))
		Expect(fakes.Provider.Live()).To(BeEmpty())
	})
})

var _ = Describe("RecoverRun", func() {
	It("rolls back a journaled run from a fresh process", func() {
		ctx := context.Background()
		fakes := tftest.NewFakes()
		fakes.Provider.NotReady["prod-node-c"] = true
		env := tftest.NewEnvironmentBuilder("prod").
			WithStableInstance("node-a").WithInstance("node-b").WithInstance("node-c").
			WithService(config.ServiceKindMonitor, "node-a").
			Build()
		Expect(newOrchestrator(env, fakes).Deploy(ctx, false)).To(BeFalse())
		Expect(fakes.Provider.Live()).To(Equal([]string{"1", "2", "3"}))

		report, err := orchestration.RecoverRun(ctx, "run-1", orchestration.Dependencies{
			Provider: fakes.Provider,
			Journal:  fakes.Journal,
		}, orchestration.WithObserver(tftest.NewRecordingObserver()))

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Orphans).To(Equal([]string{"instance/node-c"}))
		Expect(report.Destroyed).To(Equal([]string{"instance/node-b", "instance/node-a"}))
		Expect(report.Released).To(Equal([]string{"prod-node-a-ipv4"}))
		Expect(fakes.Provider.Live()).To(BeEmpty())
		Expect(fakes.Journal.Status("run-1")).To(Equal(provisioning.RunRolledBack))
	})

	It("keeps a reused stable address when recovering", func() {
		ctx := context.Background()
		fakes := tftest.NewFakes()
		fakes.Provider.SeedStableAddress("prod-node-a-ipv4")
		fakes.Provider.NotReady["prod-node-b"] = true
		env := tftest.NewEnvironmentBuilder("prod").
			WithStableInstance("node-a").WithInstance("node-b").
			Build()
		Expect(newOrchestrator(env, fakes).Deploy(ctx, false)).To(BeFalse())

		report, err := orchestration.RecoverRun(ctx, "run-1", orchestration.Dependencies{
			Provider: fakes.Provider,
			Journal:  fakes.Journal,
		}, orchestration.WithObserver(tftest.NewRecordingObserver()))

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Kept).To(Equal([]string{"prod-node-a-ipv4"}))
		Expect(report.Released).To(BeEmpty())
		Expect(fakes.Provider.StableAddresses()).To(Equal([]string{"prod-node-a-ipv4"}))
		Expect(fakes.Provider.Live()).To(BeEmpty())
	})

	It("requires a journal and a provider", func() {
		_, err := orchestration.RecoverRun(context.Background(), "run-1", orchestration.Dependencies{})
		Expect(err).To(HaveOccurred())
		_, err = orchestration.RecoverRun(context.Background(), "run-1", orchestration.Dependencies{Journal: tftest.NewFakeJournal()})
		Expect(err).To(HaveOccurred())
	})

	It("fails for an unknown run", func() {
		_, err := orchestration.RecoverRun(context.Background(), "missing", orchestration.Dependencies{
			Provider: tftest.NewFakeProvider(),
			Journal:  tftest.NewFakeJournal(),
		})
		Expect(err).To(MatchError(ContainSubstring("failed to load run missing")))
	})
})
