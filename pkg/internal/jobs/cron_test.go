package jobs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/configs"
	"github.com/yeisme/cloudbox/pkg/internal/jobs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/storage/storagetest"
	"github.com/yeisme/cloudbox/pkg/scheduler"
)

func TestLocation(t *testing.T) {
	loc, err := jobs.Location(configs.JobsConfig{Timezone: "Local"})
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = jobs.Location(configs.JobsConfig{Timezone: "UTC"})
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = jobs.Location(configs.JobsConfig{Timezone: "Nowhere/Void"})
	assert.Error(t, err)
}

func TestRegisterAndRunUsageDrift(t *testing.T) {
	cfg := storagetest.Config(func(c *configs.AppConfig) { c.Jobs.AutoRepairUsage = true })
	mgr, _ := storagetest.NewManager(t, cfg)

	u := &model.User{Name: "drift", Email: "drift@example.com", PasswordHash: "x", StorageUsed: 42, IsActive: true}
	require.NoError(t, mgr.DB.Create(u).Error)

	sched, err := scheduler.NewScheduler(scheduler.WithLocation(time.UTC))
	require.NoError(t, err)

	t.Cleanup(func() { _ = sched.Stop() })

	require.NoError(t, jobs.RegisterCronJobs(sched, mgr))

	infos := sched.GetJobInfos()
	require.Len(t, infos, 3)
	assert.Equal(t, jobs.JobOrphanSweep, infos[0].Name)
	assert.Equal(t, jobs.JobTrashRetention, infos[1].Name)
	assert.Equal(t, jobs.CronTrashRetention, infos[1].Schedule)
	assert.Equal(t, jobs.JobUsageDrift, infos[2].Name)

	sched.Start()
	require.NoError(t, sched.RunNow(jobs.JobUsageDrift))

	require.Eventually(t, func() bool {
		info, err := sched.GetJobInfoByName(jobs.JobUsageDrift)
		return err == nil && !info.LastSuccess.IsZero()
	}, 5*time.Second, 20*time.Millisecond)

	var got model.User
	require.NoError(t, mgr.DB.Where("id = ?", u.ID).First(&got).Error)
	assert.Zero(t, got.StorageUsed)
}

func TestRegisterRejectsNil(t *testing.T) {
	assert.Error(t, jobs.RegisterCronJobs(nil, nil))
}
