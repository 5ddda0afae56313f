package sqlinline

const QInsertJob = `--sql e8311b35-1b6f-46c4-be4c-aa39eea75436
insert into jobs (job_type, payload, status, scheduled_for, owner_id)
values ($1::text, coalesce($2::jsonb, '{}'::jsonb), 'pending', $3::timestamptz, $4::text)
returning id, created_at;
`

const jobColumns = `id, job_type, payload, status, result, error, scheduled_for, owner_id, created_at, started_at, completed_at`

const QSelectJobByID = `--sql 90312758-241d-491d-afba-8fdf073fcbeb
select ` + jobColumns + `
from jobs
where id = $1::uuid;
`

const QSelectJobForOwner = `--sql 48fe8a0c-1daa-46dc-b275-59e43d693482
select ` + jobColumns + `
from jobs
where id = $1::uuid and owner_id = $2::text;
`

const QListRecentJobsByOwner = `--sql 7c2866b7-7eee-43d3-b5e6-e5ead09642fc
select ` + jobColumns + `
from jobs
where owner_id = $1::text
order by created_at desc
limit $2::int;
`

const QListRecentJobs = `--sql 6f5e490a-1386-46fb-8403-65fd12eec92c
select ` + jobColumns + `
from jobs
order by created_at desc
limit $1::int;
`

const QListActiveJobs = `--sql 7a79f998-0036-4377-b235-d8c778bf87ad
select ` + jobColumns + `
from jobs
where status in ('pending', 'processing')
order by created_at desc
limit $1::int;
`

const QListReleasableJobs = `--sql 735e1e21-0c4c-41eb-a652-0928b57f81f6
select ` + jobColumns + `
from jobs
where status = 'pending'
  and job_type = $1::text
  and scheduled_for is not null
  and scheduled_for <= $2::timestamptz
order by scheduled_for asc
limit $3::int;
`

const QClaimJob = `--sql 7ddd5715-9421-4918-a993-2f92f66b3faf
update jobs
set status = 'processing', started_at = now()
where id = $1::uuid and status = 'pending';
`

const QCompleteJob = `--sql 77d69233-7213-4f0d-b9d3-9fc96f017309
update jobs
set status = 'completed', result = $2::jsonb, completed_at = now()
where id = $1::uuid and status = 'processing';
`

const QFailJob = `--sql f68e6769-3c0e-4fb5-8964-ea0ac6ec5761
update jobs
set status = 'failed', error = $2::text, completed_at = now()
where id = $1::uuid and status in ('pending', 'processing');
`
