package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mlship/mlship/internal/backup"
	"github.com/mlship/mlship/internal/dockercli"
	"github.com/mlship/mlship/internal/gitx"
	"github.com/mlship/mlship/internal/history"
	"github.com/mlship/mlship/internal/manifest"
	"github.com/mlship/mlship/internal/notify"
	"github.com/mlship/mlship/internal/pipeline"
	"github.com/mlship/mlship/internal/probe"
	"github.com/mlship/mlship/internal/registry"
	"github.com/mlship/mlship/internal/stages"
	"github.com/mlship/mlship/internal/tui"
)

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file (default is $HOME/.config/mlship/config.yml)")
	dir := fs.String("C", ".", "project working directory")
	repoURL := fs.String("repo", "", "remote repository URL to clone or pull")
	branch := fs.String("branch", defaultBranch, "branch to check out")
	image := fs.String("image", "", "image name override")
	tag := fs.String("tag", "", "image tag override")
	namespace := fs.String("namespace", "", "registry namespace override")
	watch := fs.Bool("watch", false, "render a live terminal view of the run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	man, found, err := manifest.Load(filepath.Join(*dir, manifest.DefaultFileName))
	if err != nil {
		return err
	}
	if !found {
		logrus.WithField("dir", *dir).Info("no manifest found, using defaults")
	}
	if *image != "" {
		man.Image = *image
	}
	if *tag != "" {
		man.Tag = *tag
	}
	if *namespace != "" {
		man.Registry.Namespace = *namespace
	}
	if man.Registry.Namespace == "" {
		man.Registry.Namespace = cfg.RegistryNamespace
	}
	if err := man.Validate(); err != nil {
		return err
	}
	if man.Registry.Namespace == "" {
		return errors.New("registry namespace is required: set registry.namespace in the manifest, -namespace, or MLSHIP_REGISTRY_NAMESPACE")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docker, err := dockercli.New()
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.HistoryPath, cfg.QueryTimeout)
	if err != nil {
		return errors.Wrap(err, "open run history")
	}
	defer store.Close()

	cleaner := history.NewRetentionCleaner(store, history.RetentionConfig{RetentionDays: cfg.HistoryRetention})
	if cleaner != nil {
		defer cleaner.Stop()
	}

	backups, err := backup.NewManager(store, cfg.backupConfig())
	if err != nil {
		return err
	}
	if backups != nil {
		defer backups.Stop()
	}

	number, err := store.NextRunNumber()
	if err != nil {
		return errors.Wrap(err, "allocate run number")
	}
	runID := uuid.NewString()

	mailer, err := notify.NewMailer(cfg.mailConfig())
	if err != nil {
		return err
	}

	pusher := registry.NewPusher(registryCredentials(cfg, man))
	prober := probe.New(nil)
	localRef := man.Image + ":" + man.Tag

	stageList := []pipeline.Stage{
		stages.NewCheckout(gitx.SyncOptions{
			Dir:      *dir,
			URL:      *repoURL,
			Branch:   *branch,
			Username: cfg.GitUsername,
			Password: cfg.GitPassword,
		}),
		stages.NewBuild(docker, filepath.Join(*dir, man.Context), man.Dockerfile, man.Image, man.Tag),
		&stages.SmokeTest{
			Engine:        docker,
			Checker:       prober,
			ImageRef:      localRef,
			ContainerName: man.Image + "-smoke",
			HostPort:      cfg.SmokeHostPort,
			ContainerPort: man.Service.Port,
			HealthPath:    man.Service.HealthPath,
			Warmup:        man.Warmup.Smoke.Std(),
		},
		stages.NewPublish(pusher, man.Registry.Namespace, man.Image, man.Tag),
		&stages.Deploy{
			Engine:        docker,
			Checker:       prober,
			ImageRef:      localRef,
			ContainerName: man.Deploy.Container,
			HostPort:      man.Deploy.Port,
			ContainerPort: man.Service.Port,
			Volumes:       man.Deploy.Volumes,
			HealthPath:    man.Service.HealthPath,
			Warmup:        man.Warmup.Deploy.Std(),
		},
	}

	event := func(res *pipeline.Result) notify.Event {
		return notify.Event{
			RunID:       runID,
			RunNumber:   number,
			Image:       localRef,
			Pipeline:    res.Pipeline,
			StartedAt:   res.StartedAt,
			FinishedAt:  res.FinishedAt,
			FailedStage: res.FailedStage(),
			Err:         res.Err,
		}
	}

	opts := []pipeline.Option{
		pipeline.OnSuccess(func(ctx context.Context, res *pipeline.Result) error {
			return mailer.Send(ctx, notify.BuildSuccess(event(res)))
		}),
		pipeline.OnFailure(func(ctx context.Context, res *pipeline.Result) error {
			return mailer.Send(ctx, notify.BuildFailure(event(res)))
		}),
		// Prune runs on both outcomes so failed builds do not pile up
		// dangling images on the host.
		pipeline.Always(func(ctx context.Context, _ *pipeline.Result) error {
			if err := docker.PruneContainers(ctx); err != nil {
				return err
			}
			return docker.PruneImages(ctx)
		}),
		pipeline.Always(func(_ context.Context, res *pipeline.Result) error {
			return store.RecordRun(runRecord(runID, number, localRef, res), stageRecords(runID, res))
		}),
	}

	p := pipeline.New("deploy", stageList, opts...)

	var fwd *tui.Forwarder
	var prog *tea.Program
	if *watch {
		model := tui.NewWatchModel("deploy", localRef, p.Stages())
		prog = tea.NewProgram(model)
		fwd = tui.NewForwarder(prog)
		p.Listen(fwd)
	}

	logrus.WithFields(logrus.Fields{
		"run":    number,
		"image":  localRef,
		"branch": *branch,
	}).Info("starting pipeline")

	var res *pipeline.Result
	if *watch {
		res, err = runWatched(ctx, p, prog, fwd)
		if err != nil {
			return err
		}
	} else {
		res = p.Run(ctx)
	}

	if res.Failed() {
		return errors.Wrapf(res.Err, "run #%d failed", number)
	}
	fmt.Printf("run #%d succeeded in %s\n", number, res.Duration().Round(time.Millisecond))
	return nil
}

// runWatched executes the pipeline in the background while the terminal
// view runs in the foreground. Detaching the view does not stop the run.
func runWatched(ctx context.Context, p *pipeline.Pipeline, prog *tea.Program, fwd *tui.Forwarder) (*pipeline.Result, error) {
	done := make(chan *pipeline.Result, 1)
	go func() {
		res := p.Run(ctx)
		fwd.RunFinished(res)
		done <- res
	}()

	if _, err := prog.Run(); err != nil {
		return nil, errors.Wrap(err, "terminal view")
	}
	return <-done, nil
}

// registryCredentials prefers explicit config credentials and falls back
// to whatever docker login left in the docker config file.
func registryCredentials(cfg appConfig, man manifest.Manifest) registry.Credentials {
	if cfg.RegistryUser != "" || cfg.RegistryPassword != "" {
		return registry.Credentials{Username: cfg.RegistryUser, Password: cfg.RegistryPassword}
	}

	f, err := os.Open(cfg.DockerConfigPath)
	if err != nil {
		return registry.Credentials{}
	}
	defer f.Close()

	target := registry.PublishRefs(man.Registry.Namespace, man.Image, man.Tag)[0]
	creds, err := registry.ResolveAuth(f, target)
	if err != nil {
		logrus.WithError(err).Warn("docker config lookup failed, pushing anonymously")
		return registry.Credentials{}
	}
	return creds
}

func runRecord(runID string, number int64, image string, res *pipeline.Result) history.Run {
	outcome := history.OutcomeSucceeded
	errText := ""
	if res.Failed() {
		outcome = history.OutcomeFailed
		errText = res.Err.Error()
	}
	return history.Run{
		ID:         runID,
		Number:     number,
		Pipeline:   res.Pipeline,
		Image:      image,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Outcome:    outcome,
		Error:      errText,
	}
}

func stageRecords(runID string, res *pipeline.Result) []history.StageRecord {
	records := make([]history.StageRecord, 0, len(res.Stages))
	for _, st := range res.Stages {
		rec := history.StageRecord{
			RunID:      runID,
			Position:   st.Position,
			Name:       st.Name,
			Status:     string(st.Status),
			StartedAt:  st.StartedAt,
			FinishedAt: st.FinishedAt,
		}
		if st.Err != nil {
			rec.Error = st.Err.Error()
		}
		records = append(records, rec)
	}
	return records
}
