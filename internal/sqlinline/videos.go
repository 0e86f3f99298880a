package sqlinline

const QInsertVideoJob = `--sql c64c96de-6ba5-4b47-94f9-d811423d0235
insert into videos (id, user_id, prompt, model, seconds, size, status, progress, created_at)
values ($1::text, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, $8::int, $9::timestamptz);
`

const QSelectVideoByID = `--sql 9ace2b39-bb46-4db4-b618-969a0ec4ad2d
select id, user_id, prompt, model, seconds, size, status, coalesce(progress, 0),
       coalesce(vertex_operation_name, ''), coalesce(video_url, ''), coalesce(error_message, ''),
       created_at, completed_at
from videos
where id = $1::text;
`

const QSelectVideoForOwner = `--sql d2225876-add0-4a4e-b615-048aec9a60d6
select id, user_id, prompt, model, seconds, size, status, coalesce(progress, 0),
       coalesce(vertex_operation_name, ''), coalesce(video_url, ''), coalesce(error_message, ''),
       created_at, completed_at
from videos
where id = $1::text and user_id = $2::text;
`

// QListVideosByOwner omits video_url: inline results can be tens of megabytes.
const QListVideosByOwner = `--sql 562e892f-400f-495e-b859-69bb72a4071c
select id, user_id, prompt, model, seconds, size, status, coalesce(progress, 0),
       coalesce(vertex_operation_name, ''), coalesce(error_message, ''),
       created_at, completed_at, video_url is not null
from videos
where user_id = $1::text
order by created_at desc
limit $2::int;
`

const QListProcessingVideos = `--sql 1003848f-bcc7-4465-af1d-0fb32abba5e5
select id
from videos
where status = 'processing'
order by created_at asc
limit $1::int;
`

const QSelectVideoURL = `--sql 9ae01d80-a3df-462c-99f1-510433506a1a
select coalesce(video_url, '')
from videos
where id = $1::text and user_id = $2::text;
`

const QAttachOperation = `--sql a81cc533-d927-4753-8602-5b93f27fe2ca
update videos
set vertex_operation_name = $2::text
where id = $1::text
  and vertex_operation_name is null;
`

const QAdvanceProgress = `--sql 50a4c450-3a9e-44e2-b7e0-21e21ff9c4d9
update videos
set progress = greatest(coalesce(progress, 0), $2::int)
where id = $1::text
  and status = 'processing'
returning progress;
`

const QCompleteVideo = `--sql 99b3ee15-0299-407f-9737-256cabe69333
update videos
set status = 'completed',
    progress = 100,
    video_url = $2::text,
    completed_at = $3::timestamptz
where id = $1::text
  and status = 'processing';
`

const QFailVideo = `--sql 8bd9111d-c691-4006-b9c9-2244a117e219
update videos
set status = 'failed',
    error_message = nullif($2::text, '')
where id = $1::text
  and status = 'processing';
`

const QDeleteVideo = `--sql 1bd806f5-e7f3-43c3-a81b-f6a661fadd73
delete from videos
where id = $1::text and user_id = $2::text;
`

const QDeleteLatestVideo = `--sql ae02c620-2af9-42de-944a-9b1e788ebfa3
delete from videos
where id = (
    select id
    from videos
    where user_id = $1::text
    order by created_at desc
    limit 1
)
returning id;
`
